package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/songzhibin97/riskladder/internal/regime"
	"github.com/songzhibin97/riskladder/internal/risk"
	"github.com/songzhibin97/riskladder/internal/trading"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func keyValueColumns(t table.Writer) {
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignLeft},
	})
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func price(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func renderState(w io.Writer, s risk.RiskState) {
	t := newTable(w, "RISK STATE")
	t.AppendRows([]table.Row{
		{"Risk level", s.CurrentLevel.String()},
		{"Risk per trade", pct(s.CurrentLevel.Percentage())},
		{"Market regime", string(s.MarketRegime)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total trades", s.TotalTrades},
		{"Winning trades", s.WinningTrades},
		{"Win rate", pct(s.WinRate())},
		{"Win streak", s.WinStreak},
		{"Loss streak", s.LossStreak},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Last update", s.LastUpdate.Local().Format(time.DateTime)})
	keyValueColumns(t)
	t.Render()
}

func renderLadder(w io.Writer, current risk.RiskLevel) {
	t := newTable(w, "RISK LADDER")
	t.AppendHeader(table.Row{"", "Level", "Risk per trade"})
	for _, l := range risk.Levels() {
		marker := ""
		if l == current {
			marker = "▶"
		}
		t.AppendRow(table.Row{marker, l.String(), pct(l.Percentage())})
	}
	t.Render()
}

func renderTradeResult(w io.Writer, before risk.RiskLevel, r risk.TradeResult) {
	t := newTable(w, "TRADE RECORDED")
	change := r.NewLevel.String()
	if before != r.NewLevel {
		change = fmt.Sprintf("%s → %s", before, r.NewLevel)
	}
	t.AppendRows([]table.Row{
		{"Risk level", change},
		{"Risk per trade", pct(r.RiskPct)},
		{"Win rate", pct(r.WinRate)},
		{"Total trades", r.TotalTrades},
	})
	keyValueColumns(t)
	t.Render()
}

func renderExitPlan(w io.Writer, symbol string, p risk.ExitPlan) {
	title := "EXIT PLAN"
	if symbol != "" {
		title = fmt.Sprintf("EXIT PLAN %s", symbol)
	}
	t := newTable(w, title)
	t.AppendRows([]table.Row{
		{"Direction", string(p.Direction)},
		{"Entry", price(p.EntryPrice)},
		{"Risk level", fmt.Sprintf("%s (%s)", p.RiskLevel, pct(p.RiskPct))},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Stop loss", fmt.Sprintf("%s (%s)", price(p.StopLoss), pct(p.SLPct))},
		{"Take profit", fmt.Sprintf("%s (%s)", price(p.TakeProfit), pct(p.TPPct))},
		{"TP1", price(p.TP1)},
		{"TP2", price(p.TP2)},
		{"TP3", price(p.TP3)},
		{"TP4", price(p.TP4)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trailing activation", pct(p.TrailingActivation)},
		{"Trailing step", pct(p.TrailingStep)},
	})
	keyValueColumns(t)
	t.Render()
}

func renderCoinAdjustment(w io.Writer, base risk.RiskParams, adj risk.CoinAdjustment) {
	t := newTable(w, fmt.Sprintf("COIN RISK %s (%s)", adj.Symbol, adj.Tier))
	t.AppendHeader(table.Row{"", "Base", "Adjusted"})
	t.AppendRows([]table.Row{
		{"Risk per trade", fmt.Sprintf("%.2f%%", base.RiskPerTrade), fmt.Sprintf("%.2f%%", adj.Params.RiskPerTrade)},
		{"Max leverage", fmt.Sprintf("%dx", base.MaxLeverage), fmt.Sprintf("%dx", adj.Params.MaxLeverage)},
		{"SL multiplier", fmt.Sprintf("%.2f", base.SLMultiplier), fmt.Sprintf("%.2f", adj.Params.SLMultiplier)},
		{"TP multiplier", fmt.Sprintf("%.2f", base.TPMultiplier), fmt.Sprintf("%.2f", adj.Params.TPMultiplier)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Volatility factor", fmt.Sprintf("%.1f", adj.Profile.VolatilityFactor), ""},
		{"Timeframes", fmt.Sprint(adj.Profile.RecommendedTimeframes), ""},
		{"Strategies", fmt.Sprint(adj.Profile.RecommendedStrategies), ""},
	})
	t.Render()

	for _, warning := range adj.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warning)
	}
}

func renderRegime(w io.Writer, symbol, interval string, r string, m regime.Metrics, ok bool) {
	t := newTable(w, fmt.Sprintf("MARKET REGIME %s %s", symbol, interval))
	t.AppendRow(table.Row{"Regime", r})
	if ok {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Bars", m.Bars},
			{"Last close", price(m.LastClose)},
			{"SMA fast", price(m.SMAFast)},
			{"SMA slow", price(m.SMASlow)},
			{"Return", pct(m.Return)},
			{"Volatility", pct(m.Volatility)},
			{"Flip ratio", fmt.Sprintf("%.2f", m.FlipRatio)},
		})
	}
	keyValueColumns(t)
	t.Render()
}

func renderHistory(w io.Writer, records []risk.TradeRecord) {
	t := newTable(w, "TRADE HISTORY")
	t.AppendHeader(table.Row{"ID", "Time", "Result", "PnL", "Level", "Risk", "Win rate", "Regime"})
	for _, rec := range records {
		result := "loss"
		if rec.IsWin {
			result = "win"
		}
		level := rec.LevelAfter.String()
		if rec.LevelBefore != rec.LevelAfter {
			level = fmt.Sprintf("%s → %s", rec.LevelBefore, rec.LevelAfter)
		}
		t.AppendRow(table.Row{
			rec.ID,
			rec.Time.Local().Format(time.DateTime),
			result,
			fmt.Sprintf("%.2f", rec.PnL),
			level,
			pct(rec.RiskPct),
			pct(rec.WinRate),
			string(rec.Regime),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

func renderOrders(w io.Writer, title string, orders []trading.Order) {
	if len(orders) == 0 {
		return
	}
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Order ID", "Symbol", "Side", "Type", "Quantity", "Trigger", "Status"})
	for _, o := range orders {
		t.AppendRow(table.Row{o.OrderID, o.Symbol, o.Side, o.OrderType, o.Amount, price(o.StopPrice), o.Status})
	}
	t.Render()
}

// renderPositions 持仓及其保护单
func renderPositions(w io.Writer, positions []trading.Position, orders map[string][]trading.Order) {
	t := newTable(w, "OPEN POSITIONS")
	t.AppendHeader(table.Row{"Symbol", "Side", "Amount", "Entry", "Mark", "uPnL", "Lev", "Stop", "Take profit"})
	for _, p := range positions {
		stop, tp := "none", "none"
		for _, o := range orders[p.Symbol] {
			switch o.OrderType {
			case "STOP_MARKET", "STOP":
				stop = price(o.StopPrice)
			case "TAKE_PROFIT_MARKET", "TAKE_PROFIT":
				tp = price(o.StopPrice)
			}
		}
		t.AppendRow(table.Row{
			p.Symbol,
			p.Side,
			p.Amount,
			price(p.EntryPrice),
			price(p.MarkPrice),
			fmt.Sprintf("%.2f", p.UnrealizedPnL),
			fmt.Sprintf("%dx", p.Leverage),
			stop,
			tp,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

func renderAlerts(w io.Writer, alerts []risk.RiskAlert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No position exceeds the risk limit")
		return
	}
	t := newTable(w, "RISK ALERTS")
	t.AppendHeader(table.Row{"Symbol", "Severity", "Loss", "Limit", "Description"})
	for _, a := range alerts {
		t.AppendRow(table.Row{a.Symbol, a.Severity, fmt.Sprintf("%.2f", a.Loss), fmt.Sprintf("%.2f", a.Limit), a.Description})
	}
	t.Render()
}
