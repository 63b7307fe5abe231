package ahrsweb

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/yosssi/gmq/mqtt"
	mqttclient "github.com/yosssi/gmq/mqtt/client"
)

// DefaultTopic is where MQTTPublisher sends snapshots unless told otherwise.
const DefaultTopic = "raspberrypilot/ahrs"

type mqttClient interface {
	Publish(opts *mqttclient.PublishOptions) error
	Disconnect() error
	Terminate()
}

// MQTTPublisher sends the same JSON snapshots as Listener to an MQTT broker.
type MQTTPublisher struct {
	cli   mqttClient
	topic []byte
	data  *AHRSData

	// MinInterval throttles Send the same way as Listener.MinInterval.
	MinInterval time.Duration
	last        time.Duration
	sent        bool
}

// NewMQTTPublisher connects to the broker at addr, e.g. "localhost:1883".
func NewMQTTPublisher(addr, clientID, topic string) (*MQTTPublisher, error) {
	cli := mqttclient.New(&mqttclient.Options{
		ErrorHandler: func(err error) {
			log.Println("AHRSWeb: MQTT error:", err)
		},
	})
	err := cli.Connect(&mqttclient.ConnectOptions{
		Network:  "tcp",
		Address:  addr,
		ClientID: []byte(clientID),
	})
	if err != nil {
		cli.Terminate()
		return nil, fmt.Errorf("AHRSWeb: connecting to MQTT broker %s: %w", addr, err)
	}
	return newMQTTPublisher(cli, topic), nil
}

func newMQTTPublisher(cli mqttClient, topic string) *MQTTPublisher {
	return &MQTTPublisher{cli: cli, topic: []byte(topic), data: new(AHRSData)}
}

// Send publishes the state of f after processing s, at QoS 0.
func (p *MQTTPublisher) Send(f *ahrs.Filter, s ahrs.Sample) error {
	t := f.State().T
	if p.sent && p.MinInterval > 0 && t-p.last < p.MinInterval {
		return nil
	}
	p.data.update(f, s)
	msg, err := json.Marshal(p.data)
	if err != nil {
		return err
	}
	err = p.cli.Publish(&mqttclient.PublishOptions{
		QoS:       mqtt.QoS0,
		TopicName: p.topic,
		Message:   msg,
	})
	if err != nil {
		return fmt.Errorf("AHRSWeb: MQTT publish: %w", err)
	}
	p.last, p.sent = t, true
	return nil
}

func (p *MQTTPublisher) Close() {
	if err := p.cli.Disconnect(); err != nil {
		log.Println("AHRSWeb: Error disconnecting from MQTT broker:", err)
	}
	p.cli.Terminate()
}
