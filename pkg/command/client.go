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

package command

import (
	"fmt"

	"github.com/imroc/req"

	"github.com/fuel-analytics/go-fuel/pkg/acquire"
	"github.com/fuel-analytics/go-fuel/pkg/config"
	"github.com/fuel-analytics/go-fuel/pkg/serial"
	"github.com/fuel-analytics/go-fuel/pkg/srv/api"
	"github.com/fuel-analytics/go-fuel/pkg/store"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.Api.IP, cfg.Api.Port),
	}
}

func (c *ApiClient) url(format string, v ...interface{}) string {
	return c.ApiPrefix + fmt.Sprintf(format, v...)
}

func checkStatus(r *req.Resp) error {
	code := r.Response().StatusCode
	if code < 200 || code > 299 {
		return ErrRequestFailed{Status: r.Response().Status, Message: r.String()}
	}
	return nil
}

func getJSON(url string, v interface{}) error {
	r, err := req.Get(url)
	if err != nil {
		return err
	}
	if err := checkStatus(r); err != nil {
		return err
	}
	return r.ToJSON(v)
}

// Ports lists serial ports seen by the server
func (c *ApiClient) Ports() ([]serial.PortInfo, error) {
	var ports []serial.PortInfo
	if err := getJSON(c.url("/ports"), &ports); err != nil {
		return nil, err
	}
	return ports, nil
}

// State gets the acquisition status
func (c *ApiClient) State() (*api.Status, error) {
	status := &api.Status{}
	if err := getJSON(c.url("/state"), status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *ApiClient) action(action string, body interface{}) (*api.Status, error) {
	var params []interface{}
	if body != nil {
		params = append(params, req.BodyJSON(body))
	}
	r, err := req.Post(c.url("/acquisition/%s", action), params...)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	status := &api.Status{}
	if err := r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// Start sends request to start or resume the acquisition. Empty device and
// mode mean the server configured ones.
func (c *ApiClient) Start(device, mode string) (*api.Status, error) {
	return c.action("start", &api.StartRequest{Device: device, Mode: mode})
}

// Pause sends request to pause the acquisition
func (c *ApiClient) Pause() (*api.Status, error) {
	return c.action("pause", nil)
}

// Stop sends request to stop the acquisition and close the port
func (c *ApiClient) Stop() (*api.Status, error) {
	return c.action("stop", nil)
}

// Series gets the current session with its aggregate series
func (c *ApiClient) Series() (*acquire.Session, error) {
	session := &acquire.Session{}
	if err := getJSON(c.url("/series"), session); err != nil {
		return nil, err
	}
	return session, nil
}

// Stats gets per channel statistics of the current session
func (c *ApiClient) Stats() ([]acquire.ChannelStats, error) {
	var stats []acquire.ChannelStats
	if err := getJSON(c.url("/stats"), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Records gets all stored rows
func (c *ApiClient) Records() ([]store.Record, error) {
	var records []store.Record
	if err := getJSON(c.url("/records"), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord sends request to delete a stored row
func (c *ApiClient) DeleteRecord(id uint64) error {
	r, err := req.Delete(c.url("/records/%d", id))
	if err != nil {
		return err
	}
	return checkStatus(r)
}
