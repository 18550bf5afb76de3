package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backend-vantrack/internal/tracking"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const topicPattern = "fleet/vehicle/+/position"

type positionReporter interface {
	ReportPosition(ctx context.Context, vehicleID string, sample tracking.Sample) (tracking.VehicleLocation, bool, error)
	ReportSensorError(vehicleID string, sensorErr error)
}

type positionMessage struct {
	VehicleID string  `json:"vehicle_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedMps  float64 `json:"speed_mps"`
	Timestamp int64   `json:"timestamp"`
	Error     string  `json:"error,omitempty"`
}

// Subscriber feeds MQTT position pushes from on-vehicle devices into the
// tracking service.
type Subscriber struct {
	client  mqtt.Client
	tracker positionReporter
}

func NewSubscriber(client mqtt.Client, tracker positionReporter) *Subscriber {
	return &Subscriber{client: client, tracker: tracker}
}

func (s *Subscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw positionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid position message: %v", err)
		return
	}

	if raw.Error != "" {
		s.tracker.ReportSensorError(raw.VehicleID, fmt.Errorf("device reported: %s", raw.Error))
		return
	}

	if err := validatePositionMessage(&raw); err != nil {
		log.Printf("position validation error: %v", err)
		return
	}

	sample := tracking.Sample{
		Lat:      raw.Latitude,
		Lng:      raw.Longitude,
		SpeedMps: raw.SpeedMps,
		At:       time.Unix(raw.Timestamp, 0),
	}

	if _, _, err := s.tracker.ReportPosition(context.Background(), raw.VehicleID, sample); err != nil {
		log.Printf("report position error: %v", err)
	}
}

func validatePositionMessage(msg *positionMessage) error {
	if msg.VehicleID == "" {
		return fmt.Errorf("vehicle_id: required")
	}
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
