package backend

import (
	"errors"
	"fmt"
	"strings"

	"finpal/internal/config"
)

// FromAppConfig maps the environment config onto a backend Config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}

	typ := BackendType(app.DataBackend)
	if !typ.IsValid() {
		return Config{}, fmt.Errorf("invalid data backend %q (want one of %s)",
			app.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}
	export := ExportType(app.ExportBackend)
	if !export.IsValid() {
		return Config{}, fmt.Errorf("invalid export backend %q", app.ExportBackend)
	}

	c := Config{Type: typ, ExportType: export}
	c.SQLiteDBPath = app.SQLiteDBPath
	c.AMQPURL, c.AMQPExchange, c.AMQPQueue = app.AMQPURL, app.AMQPExchange, app.AMQPQueue
	if export == SheetsExport {
		c.GoogleSpreadsheetID = app.GoogleSpreadsheetID
		c.GoogleSheetPrefix = app.GoogleSheetPrefix
		c.GoogleServiceAccountJSON = app.GoogleServiceAccountJSON
		c.GoogleServiceAccountFile = app.GoogleServiceAccountFile
		c.GoogleOAuthClientFile = app.GoogleOAuthClientFile
		c.GoogleOAuthTokenFile = app.GoogleOAuthTokenFile
	}
	return c, nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid backend type: %s", c.Type))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.ExportType == SheetsExport && c.GoogleSpreadsheetID == "" {
		errs = append(errs, errors.New("sheets export needs a spreadsheet id"))
	}
	return errors.Join(errs...)
}

// GetBackendTypes lists the supported record stores.
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
