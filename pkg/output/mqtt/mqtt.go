package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
	"github.com/ericogr/adis16000-to-mqtt/pkg/output"
	"github.com/ericogr/adis16000-to-mqtt/pkg/sensor"
	"github.com/rs/zerolog"
)

const (
	// defaults
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "adis16000-client"
	perNodeTopicFmt = "adis16000/node/%d"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyDeviceClass         = "device_class"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	keyAvailabilityTopic   = "availability_topic"
	stateClassMeasurement  = "measurement"
	// availability payloads, Home Assistant defaults
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// entity describes how one quantity is presented to Home Assistant.
type entity struct {
	quantity    string
	unit        string
	deviceClass string
}

var (
	baseEntities = []entity{
		{sensor.QuantityTemperature, "°C", "temperature"},
		{sensor.QuantitySupply, "V", "voltage"},
	}
	captureEntities = []entity{
		{sensor.QuantityXRMS, "mg", ""},
		{sensor.QuantityXPeak, "mg", ""},
		{sensor.QuantityYRMS, "mg", ""},
		{sensor.QuantityYPeak, "mg", ""},
	}
)

type MQTTOutput struct {
	client            mqtt.Client
	stateTopic        string
	availabilityTopic string
	log               zerolog.Logger
}

func NewMQTT(cfg config.MQTTConfig, nodes []config.NodeConfig, log zerolog.Logger) (output.Output, error) {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.AvailabilityTopic != "" {
		// the broker marks the gateway offline if the connection drops
		opts.SetWill(cfg.AvailabilityTopic, payloadOffline, 0, true)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	log.Info().Str("server", cfg.Server).Str("client_id", cfg.ClientID).Msg("mqtt connected")
	return newMQTTOutput(client, cfg, nodes, log), nil
}

func newMQTTOutput(client mqtt.Client, cfg config.MQTTConfig, nodes []config.NodeConfig, log zerolog.Logger) *MQTTOutput {
	m := &MQTTOutput{client: client, stateTopic: cfg.StateTopic, availabilityTopic: cfg.AvailabilityTopic, log: log}
	if m.availabilityTopic != "" {
		if err := m.PublishRaw(m.availabilityTopic, []byte(payloadOnline), true); err != nil {
			log.Error().Err(err).Str("topic", m.availabilityTopic).Msg("mqtt availability publish")
		}
	}
	if cfg.DiscoveryTopic == "" {
		return m
	}
	// Home Assistant discovery: one retained config per node quantity
	for _, n := range nodes {
		if !n.Enabled {
			continue
		}
		stateTopic := formatStateTopic(cfg.StateTopic, n.Address)
		ents := baseEntities
		if n.Capture {
			ents = append(append([]entity{}, baseEntities...), captureEntities...)
		}
		for _, e := range ents {
			uniqueID := discoveryUniqueID(cfg, n, e.quantity)
			topic := fmt.Sprintf("%s/%s/config", strings.TrimSuffix(cfg.DiscoveryTopic, "/"), uniqueID)
			payload := discoveryPayload(discoveryName(cfg, n, e.quantity), stateTopic, uniqueID, e)
			if cfg.AvailabilityTopic != "" {
				payload[keyAvailabilityTopic] = cfg.AvailabilityTopic
			}
			if err := publishJSON(client, topic, true, payload); err != nil {
				log.Error().Err(err).Str("topic", topic).Msg("mqtt discovery publish")
			}
		}
	}
	return m
}

// Publish sends one JSON document per node holding every quantity read in
// this cycle, with the raw counts under "raw".
func (m *MQTTOutput) Publish(readings []sensor.Reading) error {
	for _, g := range groupByNode(readings) {
		topic := formatStateTopic(m.stateTopic, g.node)
		if err := publishJSON(m.client, topic, false, g.payload); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		m.log.Debug().Str("topic", topic).Int("quantities", len(g.payload)-2).Msg("mqtt publish")
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client == nil {
		return nil
	}
	var err error
	if m.availabilityTopic != "" {
		err = m.PublishRaw(m.availabilityTopic, []byte(payloadOffline), true)
	}
	m.client.Disconnect(250)
	return err
}

// PublishRaw publishes a raw payload to the given topic. The caller can set the
// retain flag which is useful for discovery messages.
func (m *MQTTOutput) PublishRaw(topic string, payload []byte, retained bool) error {
	if m.client == nil {
		return fmt.Errorf("mqtt client not connected")
	}
	token := m.client.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

type nodeState struct {
	node    uint8
	payload map[string]interface{}
}

// groupByNode folds readings into per-node payloads, keeping the order in
// which nodes first appear. Derived readings have no raw count and stay out
// of the raw map.
func groupByNode(readings []sensor.Reading) []nodeState {
	var out []nodeState
	idx := map[uint8]int{}
	for _, r := range readings {
		i, ok := idx[r.Node]
		if !ok {
			i = len(out)
			idx[r.Node] = i
			out = append(out, nodeState{node: r.Node, payload: map[string]interface{}{
				"timestamp": r.Timestamp,
				"raw":       map[string]int16{},
			}})
		}
		out[i].payload[r.Quantity] = r.Value
		if !r.Derived {
			out[i].payload["raw"].(map[string]int16)[r.Quantity] = r.Raw
		}
	}
	return out
}

// helper: format a state topic for a node using an optional formatter
func formatStateTopic(base string, node uint8) string {
	if base != "" {
		if strings.Contains(base, "%d") {
			return fmt.Sprintf(base, node)
		}
		return fmt.Sprintf("%s/%d", strings.TrimSuffix(base, "/"), node)
	}
	return fmt.Sprintf(perNodeTopicFmt, node)
}

func discoveryName(cfg config.MQTTConfig, n config.NodeConfig, quantity string) string {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("ADIS16000 %s", cfg.ClientID)
	}
	node := n.Name
	if node == "" {
		node = fmt.Sprintf("node%d", n.Address)
	}
	return fmt.Sprintf("%s %s %s", name, node, strings.ReplaceAll(quantity, "_", " "))
}

func discoveryUniqueID(cfg config.MQTTConfig, n config.NodeConfig, quantity string) string {
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	return fmt.Sprintf("%s_%d_%s", uid, n.Address, quantity)
}

func discoveryPayload(name, stateTopic, uniqueID string, e entity) map[string]interface{} {
	payload := map[string]interface{}{
		keyName:                name,
		keyStateTopic:          stateTopic,
		keyUnitOfMeasurement:   e.unit,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", e.quantity),
		keyJSONAttributesTopic: stateTopic,
		keyUniqueID:            uniqueID,
	}
	if e.deviceClass != "" {
		payload[keyDeviceClass] = e.deviceClass
	}
	return payload
}

// helper: marshal and publish JSON payload
func publishJSON(client mqtt.Client, topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}
