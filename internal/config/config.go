package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

type DetectorKind string

const (
	DetectorYOLO    DetectorKind = "YOLO"
	DetectorCascade DetectorKind = "Haar Cascade"
	DetectorRemote  DetectorKind = "Remote"

	DefaultConfigPath string = "config.json"
	DefaultEnvPath    string = ".env"
	DefaultRemoteHost string = "localhost:8080"
)

var DetectorsList = [...]string{
	string(DetectorYOLO),
	string(DetectorCascade),
	string(DetectorRemote),
}

type CameraConfig struct {
	DeviceID int    `json:"device_id"`
	File     string `json:"file,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

type YOLOConfig struct {
	WeightsPath         string  `json:"weights_path"`
	ConfigPath          string  `json:"config_path"`
	NamesPath           string  `json:"names_path"`
	InputSize           int     `json:"input_size"`
	ScaleFactor         float64 `json:"scale_factor"`
	ConfidenceThreshold float32 `json:"confidence_threshold"`
	NMSThreshold        float32 `json:"nms_threshold"`
}

type CascadeConfig struct {
	Path         string  `json:"path,omitempty"`
	ScaleFactor  float64 `json:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors"`
	MinSize      int     `json:"min_size"`
}

type RemoteConfig struct {
	Host string `json:"host"`
}

type WindowConfig struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type Config struct {
	mu sync.RWMutex

	ActiveDetector DetectorKind `json:"active_detector"`
	RefreshMillis  uint         `json:"refresh_ms"`
	LogLevel       string       `json:"log_level"`

	Camera  CameraConfig  `json:"camera"`
	YOLO    YOLOConfig    `json:"yolo"`
	Cascade CascadeConfig `json:"cascade"`
	Remote  RemoteConfig  `json:"remote"`
	Window  WindowConfig  `json:"window"`
}

func (c *Config) GetDetector() DetectorKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActiveDetector
}

func (c *Config) SetDetector(kind DetectorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ActiveDetector = kind
}

func (c *Config) GetDeviceID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Camera.DeviceID
}

func (c *Config) SetDeviceID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Camera.DeviceID = id
}

func (c *Config) GetConfidence() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.YOLO.ConfidenceThreshold
}

func (c *Config) SetConfidence(v float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.YOLO.ConfidenceThreshold = v
}

// YOLOSettings returns a copy of the YOLO section.
func (c *Config) YOLOSettings() YOLOConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.YOLO
}

func (c *Config) CascadeSettings() CascadeConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Cascade
}

// RefreshInterval is the delay between two frame steps of the UI loop.
func (c *Config) RefreshInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.RefreshMillis == 0 {
		return time.Duration(defaultRefreshMillis) * time.Millisecond
	}
	return time.Duration(c.RefreshMillis) * time.Millisecond
}

func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error

	switch c.ActiveDetector {
	case DetectorYOLO, DetectorCascade, DetectorRemote:
	default:
		errs = append(errs, fmt.Errorf("unknown detector: %q", c.ActiveDetector))
	}

	if c.Camera.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("camera device_id must be >= 0, got %d", c.Camera.DeviceID))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		errs = append(errs, fmt.Errorf("camera size must not be negative"))
	}
	if c.YOLO.InputSize <= 0 {
		errs = append(errs, fmt.Errorf("yolo input_size must be positive, got %d", c.YOLO.InputSize))
	}
	if c.YOLO.ConfidenceThreshold < 0 || c.YOLO.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("yolo confidence_threshold out of [0,1]: %v", c.YOLO.ConfidenceThreshold))
	}
	if c.YOLO.NMSThreshold < 0 || c.YOLO.NMSThreshold > 1 {
		errs = append(errs, fmt.Errorf("yolo nms_threshold out of [0,1]: %v", c.YOLO.NMSThreshold))
	}
	if c.Cascade.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("cascade scale_factor must be > 1, got %v", c.Cascade.ScaleFactor))
	}
	if c.Cascade.MinNeighbors < 0 || c.Cascade.MinSize < 0 {
		errs = append(errs, fmt.Errorf("cascade min_neighbors and min_size must not be negative"))
	}
	if c.ActiveDetector == DetectorRemote && c.Remote.Host == "" {
		errs = append(errs, fmt.Errorf("remote host is required for the %s detector", DetectorRemote))
	}

	return errors.Join(errs...)
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

func (c *Config) SaveByDefault() error {
	return c.Save(DefaultConfigPath)
}

// LoadConfigFile returns the defaults overlaid with the file at path.
// A missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

const defaultRefreshMillis uint = 10

func NewDefaultConfig() *Config {
	return &Config{
		ActiveDetector: DetectorYOLO,
		RefreshMillis:  defaultRefreshMillis,
		LogLevel:       "info",
		Camera:         CameraConfig{DeviceID: 0},
		YOLO: YOLOConfig{
			WeightsPath:         "yolov3.weights",
			ConfigPath:          "yolov3.cfg",
			NamesPath:           "coco.names",
			InputSize:           416,
			ScaleFactor:         0.00392,
			ConfidenceThreshold: 0.5,
			NMSThreshold:        0.4,
		},
		Cascade: CascadeConfig{
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinSize:      30,
		},
		Remote: RemoteConfig{Host: DefaultRemoteHost},
		Window: WindowConfig{Width: 800, Height: 600},
	}
}
