package sensor

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/validation"
)

// =============================================================================
// SNMP Configuration
// =============================================================================

// SNMPInput maps one reading field to an OID.
//
// The polled value is multiplied by Scale to obtain the iio unit of the
// field (kPa, m°C, m%RH). A zero Scale means 1.
type SNMPInput struct {
	OID   string  `yaml:"oid"`
	Scale float64 `yaml:"scale"`
}

// SNMPConfig describes a remote environment monitor polled over SNMP.
type SNMPConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`

	// v2c
	Community string `yaml:"community"`

	// v3
	SecurityName  string `yaml:"security_name"`
	SecurityLevel string `yaml:"security_level"`
	AuthProtocol  string `yaml:"auth_protocol"`
	AuthPassword  string `yaml:"auth_password"`
	PrivProtocol  string `yaml:"priv_protocol"`
	PrivPassword  string `yaml:"priv_password"`
	ContextName   string `yaml:"context_name"`

	// Timing
	TimeoutMs uint32 `yaml:"timeout_ms"`
	Retries   uint32 `yaml:"retries"`

	Pressure   SNMPInput `yaml:"pressure"`
	BMP280Temp SNMPInput `yaml:"bmp280_temp"`
	HTU21Temp  SNMPInput `yaml:"htu21_temp"`
	Humidity   SNMPInput `yaml:"humidity"`
}

// Validate checks the SNMP configuration.
func (c *SNMPConfig) Validate() error {
	verrs := errors.NewValidationErrors()

	if c.Host == "" {
		verrs.AddMissing("source.snmp.host")
	}
	if c.SecurityName == "" && c.Community == "" {
		verrs.AddField("source.snmp.community", "SNMP v2c requires a community string")
	}
	for name, in := range c.inputs() {
		if in.OID == "" {
			verrs.AddMissing("source.snmp." + name + ".oid")
		} else if err := validation.ValidateOID(in.OID); err != nil {
			verrs.AddField("source.snmp."+name+".oid", err.Error())
		}
	}

	return verrs.Err()
}

func (c *SNMPConfig) inputs() map[string]SNMPInput {
	return map[string]SNMPInput{
		"pressure":    c.Pressure,
		"bmp280_temp": c.BMP280Temp,
		"htu21_temp":  c.HTU21Temp,
		"humidity":    c.Humidity,
	}
}

// =============================================================================
// SNMP Source
// =============================================================================

// SNMPSource polls the four reading fields with a single SNMP GET.
type SNMPSource struct {
	cfg SNMPConfig

	// Now stamps readings. Defaults to time.Now.
	Now func() time.Time
}

// NewSNMPSource creates an SNMP source. The configuration is validated.
func NewSNMPSource(cfg SNMPConfig) (*SNMPSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SNMPSource{cfg: cfg, Now: time.Now}, nil
}

// Sample executes one GET for all configured OIDs.
func (s *SNMPSource) Sample(ctx context.Context) (Reading, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now()

	client := createClient(ctx, &s.cfg)
	if err := client.Connect(); err != nil {
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, fmt.Errorf("connect: %w", err))
	}
	defer client.Conn.Close()

	oids := []string{
		normalizeOID(s.cfg.Pressure.OID),
		normalizeOID(s.cfg.BMP280Temp.OID),
		normalizeOID(s.cfg.HTU21Temp.OID),
		normalizeOID(s.cfg.Humidity.OID),
	}

	pdu, err := client.Get(oids)
	if err != nil {
		if isTimeoutError(err) {
			err = fmt.Errorf("%w: %w", errors.ErrTimeout, err)
		}
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, fmt.Errorf("get: %w", err))
	}

	values, err := decodeVariables(pdu.Variables)
	if err != nil {
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, err)
	}

	field := func(in SNMPInput) (float64, error) {
		v, ok := values[normalizeOID(in.OID)]
		if !ok {
			return 0, errors.NewSampleUnavailable(s.cfg.Host, fmt.Errorf("OID %s not returned", in.OID))
		}
		if in.Scale != 0 {
			v *= in.Scale
		}
		return v, nil
	}

	pressure, err := field(s.cfg.Pressure)
	if err != nil {
		return Reading{}, err
	}
	bmpTemp, err := field(s.cfg.BMP280Temp)
	if err != nil {
		return Reading{}, err
	}
	htuTemp, err := field(s.cfg.HTU21Temp)
	if err != nil {
		return Reading{}, err
	}
	humidity, err := field(s.cfg.Humidity)
	if err != nil {
		return Reading{}, err
	}

	if math.Abs(pressure) > math.MaxFloat32 {
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, fmt.Errorf("pressure %g out of range", pressure))
	}
	bmp, err := toInt32("bmp280_temp", bmpTemp)
	if err != nil {
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, err)
	}
	htu, err := toInt32("htu21_temp", htuTemp)
	if err != nil {
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, err)
	}
	hum, err := toInt32("humidity", humidity)
	if err != nil {
		return Reading{}, errors.NewSampleUnavailable(s.cfg.Host, err)
	}

	return NewReading(at, float32(pressure), bmp, htu, hum), nil
}

// toInt32 rounds a scaled value into an integer reading field.
func toInt32(field string, v float64) (int32, error) {
	r := math.Round(v)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return 0, fmt.Errorf("%s %g out of range", field, v)
	}
	return int32(r), nil
}

// decodeVariables converts a GET response into numeric values keyed by OID.
func decodeVariables(vars []gosnmp.SnmpPDU) (map[string]float64, error) {
	out := make(map[string]float64, len(vars))
	for _, v := range vars {
		val, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("OID %s: %w", v.Name, err)
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("OID %s: %w", v.Name, errNonFinite)
		}
		out[normalizeOID(v.Name)] = val
	}
	return out, nil
}

func decodeValue(v gosnmp.SnmpPDU) (float64, error) {
	switch v.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32, gosnmp.Uinteger32, gosnmp.TimeTicks:
		f, _ := new(big.Float).SetInt(gosnmp.ToBigInt(v.Value)).Float64()
		return f, nil

	case gosnmp.OpaqueFloat:
		return float64(v.Value.(float32)), nil

	case gosnmp.OpaqueDouble:
		return v.Value.(float64), nil

	case gosnmp.OctetString:
		// Many environment monitors report readings as decimal strings
		b, _ := v.Value.([]byte)
		f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", b, err)
		}
		return f, nil

	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
		return 0, fmt.Errorf("OID not found")

	default:
		return 0, fmt.Errorf("unsupported type: %v", v.Type)
	}
}

func normalizeOID(oid string) string {
	if oid == "" || strings.HasPrefix(oid, ".") {
		return oid
	}
	return "." + oid
}

// =============================================================================
// SNMP Client Creation
// =============================================================================

func createClient(ctx context.Context, cfg *SNMPConfig) *gosnmp.GoSNMP {
	port := cfg.Port
	if port == 0 {
		port = config.DefaultSNMPPort
	}

	timeout := cfg.TimeoutMs
	if timeout == 0 {
		timeout = config.DefaultSNMPTimeoutMs
	}

	retries := cfg.Retries
	if retries == 0 {
		retries = config.DefaultSNMPRetries
	}

	snmp := &gosnmp.GoSNMP{
		Context: ctx,
		Target:  cfg.Host,
		Port:    port,
		Timeout: time.Duration(timeout) * time.Millisecond,
		Retries: int(retries),
	}

	// Configure version based on presence of security name
	if cfg.SecurityName != "" {
		snmp.Version = gosnmp.Version3
		snmp.SecurityModel = gosnmp.UserSecurityModel
		snmp.MsgFlags = getMsgFlags(cfg.SecurityLevel)
		snmp.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 cfg.SecurityName,
			AuthenticationProtocol:   getAuthProtocol(cfg.AuthProtocol),
			AuthenticationPassphrase: cfg.AuthPassword,
			PrivacyProtocol:          getPrivProtocol(cfg.PrivProtocol),
			PrivacyPassphrase:        cfg.PrivPassword,
		}
		if cfg.ContextName != "" {
			snmp.ContextName = cfg.ContextName
		}
	} else {
		snmp.Version = gosnmp.Version2c
		snmp.Community = cfg.Community
	}

	return snmp
}

// =============================================================================
// SNMPv3 Protocol Helpers
// =============================================================================

func getMsgFlags(level string) gosnmp.SnmpV3MsgFlags {
	switch level {
	case "authNoPriv":
		return gosnmp.AuthNoPriv
	case "authPriv":
		return gosnmp.AuthPriv
	default:
		return gosnmp.NoAuthNoPriv
	}
}

func getAuthProtocol(protocol string) gosnmp.SnmpV3AuthProtocol {
	switch protocol {
	case "MD5":
		return gosnmp.MD5
	case "SHA":
		return gosnmp.SHA
	case "SHA256":
		return gosnmp.SHA256
	case "SHA512":
		return gosnmp.SHA512
	default:
		return gosnmp.NoAuth
	}
}

func getPrivProtocol(protocol string) gosnmp.SnmpV3PrivProtocol {
	switch protocol {
	case "DES":
		return gosnmp.DES
	case "AES":
		return gosnmp.AES
	case "AES256":
		return gosnmp.AES256
	default:
		return gosnmp.NoPriv
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	// gosnmp returns "request timeout" on timeout
	return strings.Contains(err.Error(), "request timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}
