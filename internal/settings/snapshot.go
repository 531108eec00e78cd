package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

type dbConfigSnapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var (
	dbConfigMu sync.RWMutex
	dbConfig   dbConfigSnapshot
)

// StoreDBConfig replaces the in-memory settings snapshot.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	copied := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		copied[key] = append(json.RawMessage(nil), value...)
	}
	dbConfigMu.Lock()
	dbConfig = dbConfigSnapshot{updatedAt: updatedAt, values: copied}
	dbConfigMu.Unlock()
}

// DBConfigValue returns the raw JSON value for key from the snapshot.
func DBConfigValue(key string) (json.RawMessage, bool) {
	dbConfigMu.RLock()
	defer dbConfigMu.RUnlock()
	value, ok := dbConfig.values[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), value...), true
}

// DBConfigUpdatedAt returns the newest updated_at seen in the snapshot.
func DBConfigUpdatedAt() time.Time {
	dbConfigMu.RLock()
	defer dbConfigMu.RUnlock()
	return dbConfig.updatedAt
}

// IntValue reads a non-negative integer setting, falling back to def.
func IntValue(key string, def int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	if parsed, okParse := ParseNonNegativeInt(raw); okParse {
		return parsed
	}
	return def
}

// StringValue reads a string setting, falling back to def when unset or blank.
func StringValue(key, def string) string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	var parsed string
	if errUnmarshal := json.Unmarshal(bytes.TrimSpace(raw), &parsed); errUnmarshal != nil {
		return def
	}
	if parsed = strings.TrimSpace(parsed); parsed == "" {
		return def
	}
	return parsed
}

// BoolValue reads a boolean setting stored as a JSON bool, 0/1 or a word such
// as "yes" or "off", falling back to def.
func BoolValue(key string, def bool) bool {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	if parsed, okParse := ParseBool(raw); okParse {
		return parsed
	}
	return def
}

// ParseBool accepts JSON booleans, 0 and 1, and the usual on/off words.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	var parsed any
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return false, false
	}
	switch v := parsed.(type) {
	case bool:
		return v, true
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		}
	}
	return false, false
}

// ParseNonNegativeInt accepts JSON numbers and numeric strings.
func ParseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < 0 || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}
