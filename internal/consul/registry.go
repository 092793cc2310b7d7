// Package consul registers the API with a Consul agent so it can be
// discovered and health checked.
package consul

import (
	"fmt"
	"strconv"

	"bloodlink/internal/config"

	consulapi "github.com/hashicorp/consul/api"
)

const ServiceName = "bloodlink-api"

// Registration describes the service instance announced to the agent
type Registration struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string

	// HealthURL is polled by the agent when set
	HealthURL     string
	CheckInterval string
	CheckTimeout  string
}

// Client wraps the Consul agent API
type Client struct {
	api *consulapi.Client
}

// NewClient creates a client for cfg.HTTPAddr using cfg.HTTPToken when set
func NewClient(cfg config.ConsulConfig) (*Client, error) {
	apiCfg := consulapi.DefaultConfig()
	apiCfg.Address = cfg.HTTPAddr
	if cfg.HTTPToken != "" {
		apiCfg.Token = cfg.HTTPToken
	}

	client, err := consulapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &Client{api: client}, nil
}

// RegistrationFor builds the registration of the API listening on host:port.
// The ID is stable per host so a restart replaces the previous entry.
func RegistrationFor(host string, port int) Registration {
	return Registration{
		ID:            ServiceName + "-" + host,
		Name:          ServiceName,
		Address:       host,
		Port:          port,
		Tags:          []string{"api", "blood-donation"},
		HealthURL:     "http://" + host + ":" + strconv.Itoa(port) + "/health",
		CheckInterval: "10s",
		CheckTimeout:  "3s",
	}
}

// Register replaces any stale entry with the same ID and registers reg
func (c *Client) Register(reg Registration) error {
	_ = c.api.Agent().ServiceDeregister(reg.ID)

	registration := &consulapi.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    reg.Tags,
	}
	if reg.HealthURL != "" {
		registration.Check = &consulapi.AgentServiceCheck{
			HTTP:     reg.HealthURL,
			Interval: reg.CheckInterval,
			Timeout:  reg.CheckTimeout,
		}
	}

	if err := c.api.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", reg.ID, err)
	}
	return nil
}

// Deregister removes the service from the agent
func (c *Client) Deregister(serviceID string) error {
	if err := c.api.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister service %s: %w", serviceID, err)
	}
	return nil
}
