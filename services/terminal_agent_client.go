package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"iface-http-service/config"
	"iface-http-service/models"
)

// TerminalAgentClient 通过本地代理网关访问终端。
// 网关负责与终端的底层协议(连接、摘要认证)，本客户端只做JSON转发。
type TerminalAgentClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTerminalAgentClient 创建一个新的终端代理客户端
func NewTerminalAgentClient(cfg *config.Config) InterfaceTerminalClient {
	timeout := time.Duration(cfg.AgentRequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TerminalAgentClient{
		BaseURL: cfg.AgentBaseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// credentialPayload 随请求发给代理网关的终端连接信息。
// 只在本机服务和本机网关之间传递，不会发往中心存储。
type credentialPayload struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func buildCredentialPayload(cred *models.TerminalCredential) credentialPayload {
	return credentialPayload{
		Host:     cred.Host,
		Username: cred.Username,
		Password: cred.Password,
	}
}

// doJSON 发送JSON请求并解析响应
func (c *TerminalAgentClient) doJSON(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var agentErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&agentErr)
		if agentErr.Error != "" {
			return fmt.Errorf("代理网关错误(%d): %s", resp.StatusCode, agentErr.Error)
		}
		return fmt.Errorf("代理网关错误: HTTP %d", resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// TestConnection 测试终端连通性
func (c *TerminalAgentClient) TestConnection(ctx context.Context, cred *models.TerminalCredential) error {
	payload := map[string]interface{}{"credential": buildCredentialPayload(cred)}
	return c.doJSON(ctx, http.MethodPost, "/agent/test-connection", payload, nil)
}

// ListPersons 分页列出终端上已登记的人员
func (c *TerminalAgentClient) ListPersons(ctx context.Context, cred *models.TerminalCredential, offset, limit int) (*TerminalPersonPage, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	payload := map[string]interface{}{"credential": buildCredentialPayload(cred)}
	var page TerminalPersonPage
	if err := c.doJSON(ctx, http.MethodPost, "/agent/persons/search?"+query.Encode(), payload, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateOrRecreatePerson 在终端上创建或重建人员记录
func (c *TerminalAgentClient) CreateOrRecreatePerson(ctx context.Context, cred *models.TerminalCredential, person TerminalPersonInput) error {
	payload := map[string]interface{}{
		"credential": buildCredentialPayload(cred),
		"person":     person,
	}
	return c.doJSON(ctx, http.MethodPost, "/agent/persons", payload, nil)
}

// DeletePerson 删除终端上的人员记录
func (c *TerminalAgentClient) DeletePerson(ctx context.Context, cred *models.TerminalCredential, employeeNo string) error {
	payload := map[string]interface{}{
		"credential":  buildCredentialPayload(cred),
		"employee_no": employeeNo,
	}
	return c.doJSON(ctx, http.MethodPost, "/agent/persons/delete", payload, nil)
}

// FetchFace 拉取终端上某人员的人脸图片(base64)
func (c *TerminalAgentClient) FetchFace(ctx context.Context, cred *models.TerminalCredential, employeeNo string) (string, error) {
	payload := map[string]interface{}{
		"credential":  buildCredentialPayload(cred),
		"employee_no": employeeNo,
	}
	var result struct {
		ImageBase64 string `json:"image_base64"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/agent/faces/fetch", payload, &result); err != nil {
		return "", err
	}
	if result.ImageBase64 == "" {
		return "", fmt.Errorf("终端未返回人脸图片")
	}
	return result.ImageBase64, nil
}

// PresenceCheck 检查某人员是否仍存在于终端上
func (c *TerminalAgentClient) PresenceCheck(ctx context.Context, cred *models.TerminalCredential, employeeNo string) (*PresenceProbeResult, error) {
	payload := map[string]interface{}{
		"credential":  buildCredentialPayload(cred),
		"employee_no": employeeNo,
	}
	var result PresenceProbeResult
	if err := c.doJSON(ctx, http.MethodPost, "/agent/persons/presence", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncToTerminals 请求代理网关把一条登记记录下发到多个终端，返回每个终端的结果
func (c *TerminalAgentClient) SyncToTerminals(ctx context.Context, recordID uint, terminalIDs []uint) ([]TerminalSyncResult, error) {
	payload := map[string]interface{}{
		"record_id":    recordID,
		"terminal_ids": terminalIDs,
	}
	var result struct {
		Results []TerminalSyncResult `json:"per_terminal_results"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/agent/sync", payload, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}
