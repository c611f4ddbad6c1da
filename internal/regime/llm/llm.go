package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/regime"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	deepSeekEndpoint = "https://api.deepseek.com/v1"
	deepSeekModel    = "deepseek-chat"

	// 发给模型的最近K线数量
	promptBars = 30
)

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// Detector asks a chat-completions model for a regime label. Errors and
// answers outside the known labels fall back to the wrapped detector.
type Detector struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	fallback *regime.IndicatorDetector
	logger   *slog.Logger
}

var _ regime.Detector = (*Detector)(nil)

func New(cfg Config, fallback *regime.IndicatorDetector, logger *slog.Logger) *Detector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)

	model := cfg.Model
	switch strings.ToLower(cfg.Provider) {
	case ProviderDeepSeek:
		clientCfg.BaseURL = deepSeekEndpoint
		if model == "" {
			model = deepSeekModel
		}
	default:
		if model == "" {
			model = openai.GPT4oMini
		}
	}
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if fallback == nil {
		fallback = regime.NewIndicatorDetector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Detector{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		timeout:  timeout,
		fallback: fallback,
		logger:   logger,
	}
}

func (d *Detector) DetectRegime(ctx context.Context, bars []models.Bar) (models.Regime, error) {
	metrics, ok := d.fallback.Metrics(bars)
	if !ok {
		return models.RegimeUnknown, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	answer, err := d.createChatCompletion(ctx, buildPrompt(bars, metrics))
	if err != nil {
		d.logger.Warn("llm regime detection failed, using indicators", "err", err)
		return d.fallback.Classify(metrics), nil
	}

	r := parseAnswer(answer)
	if r == models.RegimeUnknown {
		d.logger.Warn("llm returned an unknown regime, using indicators", "answer", answer)
		return d.fallback.Classify(metrics), nil
	}

	d.logger.Debug("llm regime detected", "regime", r, "model", d.model)
	return r, nil
}

func (d *Detector) createChatCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := d.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: d.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0,
			MaxTokens:   10,
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return resp.Choices[0].Message.Content, nil
}

var systemPrompt = "你是一个加密货币市场状态分类器。只回答以下标签之一，不要输出其他内容: " + labelList()

func labelList() string {
	labels := make([]string, len(models.Regimes))
	for i, r := range models.Regimes {
		labels[i] = string(r)
	}
	return strings.Join(labels, ", ")
}

func buildPrompt(bars []models.Bar, m regime.Metrics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "交易对: %s\n", bars[len(bars)-1].Symbol)
	fmt.Fprintf(&sb, "SMA20: %.4f, SMA50: %.4f, 收盘价: %.4f\n", m.SMAFast, m.SMASlow, m.LastClose)
	fmt.Fprintf(&sb, "窗口收益率: %.2f%%, ATR/价格: %.2f%%, 方向切换比例: %.2f\n",
		m.Return*100, m.Volatility*100, m.FlipRatio)
	sb.WriteString("最近K线 (时间, 开, 高, 低, 收):\n")

	start := max(0, len(bars)-promptBars)
	for _, b := range bars[start:] {
		fmt.Fprintf(&sb, "%s, %.4f, %.4f, %.4f, %.4f\n",
			b.OpenTime.UTC().Format("2006-01-02 15:04"), b.Open, b.High, b.Low, b.Close)
	}
	sb.WriteString("请给出当前市场状态标签。")
	return sb.String()
}

// parseAnswer takes the first word-like token, tolerating quotes and punctuation
func parseAnswer(answer string) models.Regime {
	if r := models.ParseRegime(strings.Trim(answer, " \t\r\n.`'\"")); r != models.RegimeUnknown {
		return r
	}

	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return !(r == '_' || r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'))
	})
	for i, f := range fields {
		// 两个词的标签，如 "strong bull"
		if i+1 < len(fields) {
			if r := models.ParseRegime(f + "_" + fields[i+1]); r != models.RegimeUnknown {
				return r
			}
		}
		if r := models.ParseRegime(f); r != models.RegimeUnknown {
			return r
		}
	}
	return models.RegimeUnknown
}
