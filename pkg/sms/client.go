package sms

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"SolGuard/config"
	"SolGuard/pkg/logger"
)

// Client 短信客户端接口
type Client interface {
	// SendSingle 发送单条短信
	// templateParam 为模板参数（JSON 字符串）
	SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) error

	// SendBatch 批量发送短信，templateParams 与 phones 一一对应
	SendBatch(ctx context.Context, phones []string, signName, templateCode string, templateParams []string) error
}

var (
	smsClient Client
	smsOnce   sync.Once
	smsErr    error
)

// Init 初始化短信客户端
func Init() error {
	smsOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.SMSProvider {
		case "aliyun":
			smsClient, smsErr = NewAliyunClient()
		case "mock":
			smsClient = NewMockClient()
		default:
			smsErr = fmt.Errorf("unsupported SMS provider: %s", cfg.SMSProvider)
		}

		if smsErr != nil {
			logger.Logger.Error("Failed to initialize SMS client", zap.Error(smsErr))
			return
		}

		logger.Logger.Info("SMS client initialized successfully",
			zap.String("provider", cfg.SMSProvider),
		)
	})

	return smsErr
}

func GetClient() Client {
	if smsClient == nil {
		panic("SMS client not initialized, call sms.Init() first")
	}
	return smsClient
}

func SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) error {
	return GetClient().SendSingle(ctx, phone, signName, templateCode, templateParam)
}

func SendBatch(ctx context.Context, phones []string, signName, templateCode string, templateParams []string) error {
	return GetClient().SendBatch(ctx, phones, signName, templateCode, templateParams)
}
