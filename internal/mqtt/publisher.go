package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"p1gateway/internal/meter"
)

const (
	deviceID       = "p1_meter"
	publishTimeout = 5 * time.Second
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Prefix is the Home Assistant discovery prefix, normally "homeassistant".
	Prefix string
}

// Publisher pushes parsed snapshots to an MQTT broker using Home Assistant
// discovery, so the meter shows up as a device without any HA configuration.
type Publisher struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

// NewPublisher connects to the broker. Publishing is best-effort: the paho
// client reconnects on its own and queued messages for a dead broker are
// dropped by the publish timeout.
func NewPublisher(opts Options, logger *zap.Logger) (*Publisher, error) {
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(fmt.Sprintf("tcp://%s", opts.Broker))
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetUsername(opts.Username)
	clientOpts.SetPassword(opts.Password)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})
	clientOpts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("connected to mqtt broker", zap.String("broker", opts.Broker))
	})

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", opts.Broker, token.Error())
	}

	return &Publisher{client: client, prefix: opts.Prefix, logger: logger}, nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
}

type haSensorConfig struct {
	Name             string   `json:"name"`
	DeviceClass      string   `json:"device_class"`
	StateTopic       string   `json:"state_topic"`
	UnitOfMeasure    string   `json:"unit_of_measurement,omitempty"`
	ValueTemplate    string   `json:"value_template"`
	UniqueID         string   `json:"unique_id"`
	StateClass       string   `json:"state_class,omitempty"`
	ExpireAfter      uint     `json:"expire_after,omitempty"`
	DisplayPrecision int      `json:"suggested_display_precision,omitempty"`
	Device           haDevice `json:"device"`
}

type sensorDef struct {
	name        string
	deviceClass string
	unit        string
	stateClass  string
	jsonKey     string
	precision   int
}

var sensorDefs = []sensorDef{
	{"Power Consumption", "power", "kW", "measurement", "power_consumption_kw", 3},
	{"Power Production", "power", "kW", "measurement", "power_production_kw", 3},
	{"Total Consumption", "energy", "kWh", "total_increasing", "total_consumption_kwh", 3},
	{"Total Production", "energy", "kWh", "total_increasing", "total_production_kwh", 3},
	{"Gas Consumption", "gas", "m³", "total_increasing", "gas_m3", 3},
	{"L1 Voltage", "voltage", "V", "measurement", "l1_voltage_v", 1},
	{"L2 Voltage", "voltage", "V", "measurement", "l2_voltage_v", 1},
	{"L3 Voltage", "voltage", "V", "measurement", "l3_voltage_v", 1},
}

// PublishDiscovery announces every sensor with a retained config message.
func (p *Publisher) PublishDiscovery() error {
	device := haDevice{
		Identifiers:  []string{deviceID},
		Name:         "P1 Meter",
		Manufacturer: "DSMR",
	}

	for _, def := range sensorDefs {
		config := haSensorConfig{
			Name:             def.name,
			DeviceClass:      def.deviceClass,
			StateTopic:       p.stateTopic(),
			UnitOfMeasure:    def.unit,
			ValueTemplate:    "{{ value_json." + def.jsonKey + " }}",
			UniqueID:         deviceID + "_" + def.jsonKey,
			StateClass:       def.stateClass,
			ExpireAfter:      600,
			DisplayPrecision: def.precision,
			Device:           device,
		}
		payload, err := json.Marshal(config)
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("%s/sensor/%s_%s/config", p.prefix, deviceID, def.jsonKey)
		if err := p.publish(topic, payload, true); err != nil {
			return err
		}
	}
	return nil
}

// PublishSnapshot pushes one retained state message for the whole snapshot.
func (p *Publisher) PublishSnapshot(s meter.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.publish(p.stateTopic(), payload, true)
}

func (p *Publisher) stateTopic() string {
	return fmt.Sprintf("%s/sensor/%s/state", p.prefix, deviceID)
}

func (p *Publisher) publish(topic string, payload []byte, retain bool) error {
	token := p.client.Publish(topic, 1, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: publish %s: timeout", topic)
	}
	return token.Error()
}
