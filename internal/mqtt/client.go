// Package mqtt bridges the agent to an MQTT broker, including Home
// Assistant discovery so adapters show up as switch entities.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"netadapter-agent/internal/config"
	"netadapter-agent/internal/core"
	"netadapter-agent/internal/netadapter"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Client struct {
	client      mqtt.Client
	cfg         *config.Config
	commands    core.CommandChannel
	eventBus    *core.EventBus
	getAdapters func(ctx context.Context) ([]netadapter.Adapter, error)
	prefix      string
}

// NewClient creates a client with robust reconnect behaviour. Returns nil
// when the bridge is disabled in the config.
func NewClient(cfg *config.Config, commands core.CommandChannel, eb *core.EventBus, getAdapters func(ctx context.Context) ([]netadapter.Adapter, error)) *Client {
	if !cfg.MQTT.Enabled {
		return nil
	}

	prefix := strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)

	// Connection stability settings
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	// Keep retrying the initial connect so the agent survives a broker
	// that comes up later than we do.
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetOrderMatters(false)

	// LWT: the broker reports us offline if the process dies.
	opts.SetWill(prefix+"/availability", "offline", 1, true)

	c := &Client{
		cfg:         cfg,
		commands:    commands,
		eventBus:    eb,
		getAdapters: getAdapters,
		prefix:      prefix,
	}

	opts.SetOnConnectHandler(c.onConnect)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v. Retrying in background...", err)
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		log.Println("[MQTT] Attempting to reconnect...")
	})

	c.client = mqtt.NewClient(opts)

	return c
}

// Connect initiates the connection and starts the event watcher.
func (c *Client) Connect(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	log.Printf("[MQTT] Starting connection loop to %s...", c.cfg.MQTT.Broker)

	go c.watchEvents(ctx)

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] Initial connection error: %v", token.Error())
		return token.Error()
	}

	return nil
}

// Disconnect publishes the offline status before closing the socket.
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] Disconnecting...")

		token := c.client.Publish(c.prefix+"/availability", 0, true, "offline")
		if token.WaitTimeout(2 * time.Second) {
			if token.Error() != nil {
				log.Printf("[MQTT] Warning: failed to publish offline status: %v", token.Error())
			}
		} else {
			log.Println("[MQTT] Warning: timed out publishing offline status")
		}

		c.client.Disconnect(250)
		log.Println("[MQTT] Disconnected.")
	}
}

// Publish sends a payload to a subtopic under the configured prefix.
func (c *Client) Publish(subtopic string, payload interface{}, retained bool) {
	if c.client == nil || !c.client.IsConnected() {
		return
	}

	topic := fmt.Sprintf("%s/%s", c.prefix, subtopic)
	msg := fmt.Sprintf("%v", payload)

	token := c.client.Publish(topic, 0, retained, msg)

	// Don't block the caller, but don't leak goroutines either
	go func() {
		if token.WaitTimeout(5 * time.Second) {
			if token.Error() != nil {
				log.Printf("[MQTT] Publish error to %s: %v", topic, token.Error())
			}
		} else {
			log.Printf("[MQTT] Timeout publishing to %s", topic)
		}
	}()
}

// watchEvents mirrors agent events onto MQTT topics.
func (c *Client) watchEvents(ctx context.Context) {
	sub := c.eventBus.Subscribe(core.AdaptersChangedEvent, core.ActionResultEvent, core.HookReinstalledEvent)
	defer c.eventBus.Unsubscribe(sub, core.AdaptersChangedEvent, core.ActionResultEvent, core.HookReinstalledEvent)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub:
			switch event.Type {
			case core.AdaptersChangedEvent:
				if adapters, ok := event.Payload.([]netadapter.Adapter); ok {
					c.publishAdapterStates(adapters)
				}
			case core.ActionResultEvent:
				if payload, ok := event.Payload.(map[string]interface{}); ok {
					data, _ := json.Marshal(payload)
					c.Publish("action/result", string(data), false)
				}
			case core.HookReinstalledEvent:
				if payload, ok := event.Payload.(map[string]interface{}); ok {
					c.Publish("hook/reinstalls", payload["reinstalls"], true)
					if status, ok := payload["status"].(string); ok {
						c.Publish("hook/status", status, true)
					}
				}
			}
		}
	}
}

// publishAdapterStates publishes one retained ON/OFF state per adapter plus
// the full snapshot as JSON.
func (c *Client) publishAdapterStates(adapters []netadapter.Adapter) {
	for _, a := range adapters {
		state := "OFF"
		if a.Enabled {
			state = "ON"
		}
		c.Publish(fmt.Sprintf("adapter/%s/state", sanitizeID(a.DeviceID)), state, true)
	}
	data, err := json.Marshal(adapters)
	if err != nil {
		log.Printf("[MQTT] Error marshalling adapter snapshot: %v", err)
		return
	}
	c.Publish("adapters/state", string(data), true)
}

// onConnect is invoked by Paho on its internal event goroutine.
func (c *Client) onConnect(client mqtt.Client) {
	log.Println("[MQTT] Connected to broker.")

	topics := map[string]mqtt.MessageHandler{
		"adapter/+/set":   c.handleAdapterSet,
		"switch/set":      c.handleSwitch,
		"enable_all/set":  c.handleEnableAll,
		"disable_all/set": c.handleDisableAll,
		"script/run":      c.handleScriptRun,
		"script/stop":     c.handleScriptStop,
	}

	for sub, handler := range topics {
		topic := fmt.Sprintf("%s/%s", c.prefix, sub)
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
		} else {
			log.Printf("[MQTT] Subscribed to %s", topic)
		}
	}

	// Send discovery and online status in a separate goroutine so onConnect
	// is not blocked by the discovery sleep.
	go func() {
		c.Publish("availability", "online", true)
		if c.cfg.MQTT.HADiscoveryEnabled {
			c.PublishHADiscovery()
		}
	}()
}

// PublishHADiscovery announces one switch entity per physical adapter.
func (c *Client) PublishHADiscovery() {
	// Give the subscriptions a moment to settle first
	time.Sleep(1 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	adapters, err := c.getAdapters(ctx)
	if err != nil {
		log.Printf("[MQTT] Warning: could not list adapters for HA discovery: %v", err)
		return
	}

	safeID := sanitizeID(c.cfg.MQTT.ClientID)

	for _, a := range adapters {
		adapterID := sanitizeID(a.DeviceID)
		discoveryTopic := fmt.Sprintf("%s/switch/%s/adapter_%s/config", c.cfg.MQTT.HADiscoveryPrefix, safeID, adapterID)

		payload := map[string]interface{}{
			"name":      a.Name,
			"unique_id": fmt.Sprintf("%s_adapter_%s", safeID, adapterID),
			"object_id": fmt.Sprintf("%s_%s", safeID, adapterID),
			"icon":      "mdi:ethernet",

			"command_topic": fmt.Sprintf("%s/adapter/%s/set", c.prefix, adapterID),
			"state_topic":   fmt.Sprintf("%s/adapter/%s/state", c.prefix, adapterID),
			"payload_on":    "ON",
			"payload_off":   "OFF",

			"availability_topic":    fmt.Sprintf("%s/availability", c.prefix),
			"payload_available":     "online",
			"payload_not_available": "offline",

			"device": map[string]interface{}{
				"identifiers":  []string{safeID},
				"name":         "Network Adapter Agent",
				"manufacturer": "netadapter-agent",
				"model":        "keyboard-hook adapter switcher",
			},
		}

		jsonPayload, _ := json.Marshal(payload)
		c.client.Publish(discoveryTopic, 0, true, jsonPayload)
	}
	log.Printf("[MQTT] HA discovery sent for %d adapters", len(adapters))
}

// --- Handlers: translate broker messages into agent commands ---

func (c *Client) dispatch(cmd core.Command) {
	select {
	case c.commands <- cmd:
	default:
		log.Printf("[MQTT] Command channel full, dropping %s", cmd.Type)
	}
}

func (c *Client) handleAdapterSet(client mqtt.Client, msg mqtt.Message) {
	// Topic shape: <prefix>/adapter/<deviceID>/set
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 2 {
		return
	}
	deviceID := parts[len(parts)-2]

	cmdType := core.CmdDisableAdapter
	switch strings.ToLower(string(msg.Payload())) {
	case "on", "true", "1":
		cmdType = core.CmdEnableAdapter
	case "off", "false", "0":
		cmdType = core.CmdDisableAdapter
	default:
		return
	}
	c.dispatch(core.Command{Type: cmdType, Payload: map[string]interface{}{"deviceId": deviceID}})
}

func (c *Client) handleSwitch(client mqtt.Client, msg mqtt.Message) {
	c.dispatch(core.Command{Type: core.CmdSwitchAdapters})
}

func (c *Client) handleEnableAll(client mqtt.Client, msg mqtt.Message) {
	c.dispatch(core.Command{Type: core.CmdEnableAll})
}

func (c *Client) handleDisableAll(client mqtt.Client, msg mqtt.Message) {
	c.dispatch(core.Command{Type: core.CmdDisableAll})
}

func (c *Client) handleScriptRun(client mqtt.Client, msg mqtt.Message) {
	c.dispatch(core.Command{Type: core.CmdRunScript, Payload: map[string]interface{}{"name": string(msg.Payload())}})
}

func (c *Client) handleScriptStop(client mqtt.Client, msg mqtt.Message) {
	c.dispatch(core.Command{Type: core.CmdStopScript})
}

// sanitizeID strips characters MQTT topics and HA object ids dislike.
func sanitizeID(id string) string {
	id = strings.ReplaceAll(id, " ", "_")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return -1
	}, id)
}
