/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
	"github.com/fuel-analytics/go-fuel/pkg/log"
)

const (
	DefaultPublishTimeout = time.Second
	connectRetryInterval  = 5 * time.Second
)

// Client is the part of an mqtt client the publisher needs
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Message is the payload published for every accepted sample set
type Message struct {
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Samples   []layers.Sample `json:"samples"`
}

// Publisher is an acquisition sink publishing sample sets to an mqtt topic.
// Publish failures are logged and never stop the acquisition.
type Publisher struct {
	client  Client
	topic   string
	timeout time.Duration
	now     func() time.Time
}

var _ acquire.Sink = &Publisher{}

func NewPublisher(client Client, topic string) *Publisher {
	return &Publisher{
		client:  client,
		topic:   topic,
		timeout: DefaultPublishTimeout,
		now:     time.Now,
	}
}

func (p *Publisher) Push(samples []layers.Sample, seq uint64) {
	payload, err := json.Marshal(&Message{
		Seq:       seq,
		Timestamp: p.now().Unix(),
		Samples:   samples,
	})
	if err != nil {
		log.Error("Error while encoding sample set %d: %s", seq, err)
		return
	}
	tok := p.client.Publish(p.topic, 0, false, payload)
	if !tok.WaitTimeout(p.timeout) {
		log.Warning("Timeout publishing sample set %d to %s", seq, p.topic)
		return
	}
	if err := tok.Error(); err != nil {
		log.Warning("Error publishing sample set %d to %s: %s", seq, p.topic, err)
	}
}

// NewClient creates an auto reconnecting client for the configured broker
func NewClient(cfg *config.MqttConfig) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	return mqtt.NewClient(opts)
}

// Connect keeps trying to connect the client until it succeeds or ctx is done
func Connect(ctx context.Context, client mqtt.Client) error {
	for !client.IsConnected() {
		tok := client.Connect()
		if !tok.WaitTimeout(time.Second) {
			log.Debug("Timeout connecting to MQTT broker, retrying")
		} else if err := tok.Error(); err != nil {
			log.Warning("Error connecting to MQTT broker: %s", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(connectRetryInterval):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	log.Info("Connected to MQTT broker")
	return nil
}
