package services

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"iface-http-service/config"
)

// InterfaceMQTTService defines the outbound event publisher interface
type InterfaceMQTTService interface {
	PublishImportProgress(jobID string, payload interface{})
	PublishImportEvent(jobID string, event interface{})
	PublishPresenceResult(studentID uint, payload interface{})
	IsConnected() bool
	Disconnect()
}

// MQTTService 向消息总线发布导入进度和存在性检查结果。
// 发布是尽力而为：代理不可达时事件被丢弃，HTTP响应仍然完整，
// 消费方(监控面板等)只是看不到实时流。
type MQTTService struct {
	Client mqtt.Client
	Config *config.Config
}

// NewMQTTService 创建并连接一个新的MQTT发布服务。
// 连接失败不视为致命错误，服务以断连状态继续运行。
func NewMQTTService(cfg *config.Config) InterfaceMQTTService {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.GetMQTTBroker())
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		config.Info("MQTT 已连接到 %s", cfg.GetMQTTBroker())
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		config.Warning("MQTT 连接丢失: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		config.Warning("MQTT 初始连接失败，进入后台重连: %v", token.Error())
	}

	return &MQTTService{
		Client: client,
		Config: cfg,
	}
}

// publish 序列化并发布一条事件，失败只记日志
func (s *MQTTService) publish(topic string, payload interface{}) {
	if !s.Client.IsConnected() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		config.Warning("MQTT 事件序列化失败 [%s]: %v", topic, err)
		return
	}

	token := s.Client.Publish(topic, 0, false, data)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		config.Warning("MQTT 事件发布失败 [%s]: %v", topic, token.Error())
	}
}

// 1 PublishImportProgress 发布导入任务的聚合进度快照
func (s *MQTTService) PublishImportProgress(jobID string, payload interface{}) {
	s.publish(fmt.Sprintf("iface/import/%s/progress", jobID), payload)
}

// 2 PublishImportEvent 发布导入任务的单行事件
func (s *MQTTService) PublishImportEvent(jobID string, event interface{}) {
	s.publish(fmt.Sprintf("iface/import/%s/events", jobID), event)
}

// 3 PublishPresenceResult 发布一次存在性检查的汇总结果
func (s *MQTTService) PublishPresenceResult(studentID uint, payload interface{}) {
	s.publish(fmt.Sprintf("iface/presence/%d", studentID), payload)
}

// 4 IsConnected 返回当前与代理的连接状态
func (s *MQTTService) IsConnected() bool {
	return s.Client.IsConnected()
}

// 5 Disconnect 断开与代理的连接
func (s *MQTTService) Disconnect() {
	if s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
}
