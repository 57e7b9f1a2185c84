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
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	token *fakeToken
	msgs  []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func TestPush(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: true}}
	p := NewPublisher(client, "go-fuel/samples")
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	samples := []layers.Sample{{Channel: 1, Value: 10}, {Channel: 2, Value: 20, Position: 1}}
	p.Push(samples, 7)

	require.Len(t, client.msgs, 1)
	require.Equal(t, "go-fuel/samples", client.msgs[0].topic)
	require.Equal(t, byte(0), client.msgs[0].qos)

	msg := &Message{}
	require.NoError(t, json.Unmarshal(client.msgs[0].payload, msg))
	require.Equal(t, &Message{Seq: 7, Timestamp: 1700000000, Samples: samples}, msg)
}

func TestPushFailuresAreNotFatal(t *testing.T) {
	for _, tok := range []*fakeToken{{done: false}, {done: true, err: errors.New("not connected")}} {
		client := &fakeClient{token: tok}
		p := NewPublisher(client, "t")
		require.NotPanics(t, func() {
			p.Push([]layers.Sample{{Channel: 1, Value: 1}}, 1)
		})
		require.Len(t, client.msgs, 1)
	}
}

func TestNewClient(t *testing.T) {
	cfg := config.NewDefaultConfig().Mqtt
	client := NewClient(cfg)
	require.False(t, client.IsConnected())
	reader := client.OptionsReader()
	require.Equal(t, "go-fuel", reader.ClientID())
	require.Equal(t, "tcp://localhost:1883", reader.Servers()[0].String())
}
