package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WebhookConfig holds runtime switches for webhook ingestion. It is
// hot-reloaded from webhook.yml so verification can be enabled without a
// restart.
type WebhookConfig struct {
	VerifySignatures   bool          `mapstructure:"verifySignatures"`
	SignatureHeader    string        `mapstructure:"signatureHeader"`
	SignatureTolerance time.Duration `mapstructure:"signatureTolerance"`
	NotifyCustomers    bool          `mapstructure:"notifyCustomers"`
	SyncAccounting     bool          `mapstructure:"syncAccounting"`
}

const DefaultSignatureHeader = "X-Webhook-Signature"

func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		VerifySignatures:   false,
		SignatureHeader:    DefaultSignatureHeader,
		SignatureTolerance: 5 * time.Minute,
		NotifyCustomers:    true,
		SyncAccounting:     true,
	}
}

type WebhookConfigHolder struct {
	current atomic.Value // holds WebhookConfig
}

// NewStaticWebhookConfigHolder returns a holder that never reloads.
func NewStaticWebhookConfigHolder(cfg WebhookConfig) *WebhookConfigHolder {
	holder := &WebhookConfigHolder{}
	holder.current.Store(normalizeWebhookConfig(cfg))
	return holder
}

func NewWebhookConfigHolder(log *zap.Logger) (*WebhookConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.webhook")

	v := viper.New()
	v.SetConfigName("webhook")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/ordersync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORDERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultWebhookConfig()
	v.SetDefault("webhook.verifySignatures", defaults.VerifySignatures)
	v.SetDefault("webhook.signatureHeader", defaults.SignatureHeader)
	v.SetDefault("webhook.signatureTolerance", defaults.SignatureTolerance)
	v.SetDefault("webhook.notifyCustomers", defaults.NotifyCustomers)
	v.SetDefault("webhook.syncAccounting", defaults.SyncAccounting)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg WebhookConfig
	if err := v.UnmarshalKey("webhook", &cfg); err != nil {
		return nil, err
	}
	if err := validateWebhookConfig(cfg); err != nil {
		return nil, err
	}

	holder := &WebhookConfigHolder{}
	holder.current.Store(normalizeWebhookConfig(cfg))

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated WebhookConfig
			if err := v.UnmarshalKey("webhook", &updated); err != nil {
				log.Warn("webhook config reload failed", zap.Error(err))
				return
			}
			if err := validateWebhookConfig(updated); err != nil {
				log.Warn("invalid webhook config ignored", zap.Error(err))
				return
			}
			holder.current.Store(normalizeWebhookConfig(updated))
			log.Info("webhook config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *WebhookConfigHolder) Get() WebhookConfig {
	if h == nil {
		return DefaultWebhookConfig()
	}
	cfg, ok := h.current.Load().(WebhookConfig)
	if !ok {
		return DefaultWebhookConfig()
	}
	return cfg
}

func validateWebhookConfig(cfg WebhookConfig) error {
	if cfg.SignatureTolerance < 0 {
		return errors.New("webhook.signatureTolerance cannot be negative")
	}
	return nil
}

func normalizeWebhookConfig(cfg WebhookConfig) WebhookConfig {
	cfg.SignatureHeader = strings.TrimSpace(cfg.SignatureHeader)
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = DefaultSignatureHeader
	}
	return cfg
}
