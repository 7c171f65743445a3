package backend

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

// deviceIDKey is where the stable push registration id lives in the plain
// store. It identifies the installation, not the session, so logout leaves
// it in place.
const deviceIDKey = "deviceId"

// DeviceRegistrarImpl implements domain.DeviceRegistrar. The push SDK
// itself is a black box; this registrar only supplies the backend with a
// stable per-installation id in place of the SDK's player id.
type DeviceRegistrarImpl struct {
	gw     *Gateway
	store  domain.SessionStore
	logger *zap.Logger
}

// NewDeviceRegistrar creates the device registration surface
func NewDeviceRegistrar(gw *Gateway, store domain.SessionStore, logger *zap.Logger) domain.DeviceRegistrar {
	return &DeviceRegistrarImpl{gw: gw, store: store, logger: logger}
}

type registerDeviceRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type clearDeviceRequest struct {
	UserID string `json:"userId"`
}

// Register implements domain.DeviceRegistrar
func (d *DeviceRegistrarImpl) Register(ctx context.Context, userID string) error {
	deviceID, err := d.ensureDeviceID(ctx)
	if err != nil {
		return err
	}
	return d.gw.Post(ctx, "/register-device", registerDeviceRequest{Token: deviceID, UserID: userID}, nil)
}

// Clear implements domain.DeviceRegistrar
func (d *DeviceRegistrarImpl) Clear(ctx context.Context, userID string) error {
	return d.gw.Post(ctx, "/clear-device-token", clearDeviceRequest{UserID: userID}, nil)
}

func (d *DeviceRegistrarImpl) ensureDeviceID(ctx context.Context) (string, error) {
	deviceID, err := d.store.Get(ctx, deviceIDKey)
	if err == nil && deviceID != "" {
		return deviceID, nil
	}
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return "", err
	}

	deviceID = uuid.NewString()
	if err := d.store.Set(ctx, deviceIDKey, deviceID); err != nil {
		return "", err
	}
	d.logger.Info("generated device id", zap.String("device_id", deviceID))
	return deviceID, nil
}

// Compile-time interface compliance verification
var _ domain.DeviceRegistrar = (*DeviceRegistrarImpl)(nil)
