package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	openapiutil "github.com/alibabacloud-go/openapi-util/service"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"SolGuard/pkg/logger"
)

type AliyunClient struct {
	client *openapi.Client
}

// NewAliyunClient 创建阿里云短信客户端。
// 凭据通过 SDK 的环境变量自动获取：
// ALIBABA_CLOUD_ACCESS_KEY_ID / ALIBABA_CLOUD_ACCESS_KEY_SECRET
func NewAliyunClient() (*AliyunClient, error) {
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	client, err := openapi.NewClient(&openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dysmsapi.aliyuncs.com"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun client: %w", err)
	}

	return &AliyunClient{client: client}, nil
}

func (c *AliyunClient) createApiInfo(action string) *openapi.Params {
	return &openapi.Params{
		Action:      tea.String(action),
		Version:     tea.String("2017-05-25"),
		Protocol:    tea.String("HTTPS"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		Pathname:    tea.String("/"),
		ReqBodyType: tea.String("json"),
		BodyType:    tea.String("json"),
	}
}

// checkResponse API 层面 200 不代表发送成功，还要看 body 里的业务 Code
func checkResponse(resp map[string]interface{}) error {
	if resp["statusCode"] != nil {
		if statusCode, ok := resp["statusCode"].(int); ok && statusCode != 200 {
			return fmt.Errorf("SMS API error: statusCode=%d", statusCode)
		}
	}

	if resp["body"] == nil {
		return nil
	}

	bodyBytes, _ := json.Marshal(resp["body"])
	var bodyMap map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &bodyMap); err != nil {
		return nil
	}
	if code, ok := bodyMap["Code"].(string); ok && code != "OK" {
		message := ""
		if msg, ok := bodyMap["Message"].(string); ok {
			message = msg
		}
		return fmt.Errorf("SMS send failed: %s - %s", code, message)
	}

	return nil
}

// SendSingle 发送单条短信
func (c *AliyunClient) SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) error {
	if signName == "" {
		return fmt.Errorf("signName is required")
	}
	if templateCode == "" {
		return fmt.Errorf("templateCode is required")
	}

	params := c.createApiInfo("SendSms")

	queries := map[string]interface{}{
		"PhoneNumbers":  tea.String(phone),
		"SignName":      tea.String(signName),
		"TemplateCode":  tea.String(templateCode),
		"TemplateParam": tea.String(templateParam),
	}

	runtime := &util.RuntimeOptions{}
	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(queries),
	}

	resp, err := c.client.CallApi(params, request, runtime)
	if err != nil {
		logger.Logger.Error("Failed to send SMS",
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	if err := checkResponse(resp); err != nil {
		logger.Logger.Error("SMS send failed",
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("SMS sent successfully",
		zap.String("template", templateCode),
	)

	return nil
}

// SendBatch 批量发送短信（SendBatchSms API）
func (c *AliyunClient) SendBatch(ctx context.Context, phones []string, signName, templateCode string, templateParams []string) error {
	if signName == "" {
		return fmt.Errorf("signName is required")
	}
	if templateCode == "" {
		return fmt.Errorf("templateCode is required")
	}
	if len(phones) == 0 {
		return fmt.Errorf("phones list is empty")
	}
	if len(templateParams) != len(phones) {
		return fmt.Errorf("templateParams count (%d) must match phones count (%d)", len(templateParams), len(phones))
	}

	phoneNumbersJSON, err := json.Marshal(phones)
	if err != nil {
		return fmt.Errorf("failed to marshal phone numbers: %w", err)
	}

	// 所有手机号使用相同签名
	signNames := make([]string, len(phones))
	for i := range signNames {
		signNames[i] = signName
	}
	signNamesJSON, err := json.Marshal(signNames)
	if err != nil {
		return fmt.Errorf("failed to marshal sign names: %w", err)
	}

	templateParamsJSON, err := json.Marshal(templateParams)
	if err != nil {
		return fmt.Errorf("failed to marshal template params: %w", err)
	}

	params := c.createApiInfo("SendBatchSms")

	queries := map[string]interface{}{
		"PhoneNumberJson":   tea.String(string(phoneNumbersJSON)),
		"SignNameJson":      tea.String(string(signNamesJSON)),
		"TemplateCode":      tea.String(templateCode),
		"TemplateParamJson": tea.String(string(templateParamsJSON)),
	}

	runtime := &util.RuntimeOptions{}
	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(queries),
	}

	resp, err := c.client.CallApi(params, request, runtime)
	if err != nil {
		logger.Logger.Error("Failed to send batch SMS",
			zap.Int("count", len(phones)),
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send batch SMS: %w", err)
	}

	if err := checkResponse(resp); err != nil {
		logger.Logger.Error("Batch SMS send failed",
			zap.Int("count", len(phones)),
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Batch SMS sent successfully",
		zap.Int("count", len(phones)),
		zap.String("template", templateCode),
	)

	return nil
}
