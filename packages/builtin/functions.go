package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Registry holds named template functions.
type Registry struct {
	funcs map[string]any
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]any),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["now"] = funcNow
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["uuid"] = funcUUID
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["randomAlphanumeric"] = funcRandomAlphanumeric
	r.funcs["base64"] = funcBase64
	r.funcs["base64Decode"] = funcBase64Decode
	r.funcs["md5"] = funcMD5
	r.funcs["sha256"] = funcSHA256
	r.funcs["urlEncode"] = url.QueryEscape
	r.funcs["urlDecode"] = funcURLDecode
	r.funcs["date"] = funcDate
	r.funcs["json"] = funcJSON
	r.funcs["path"] = funcPath
	r.funcs["env"] = os.Getenv
	r.funcs["shq"] = funcShellQuote
}

// Register adds or replaces a function. fn must be a valid template function.
func (r *Registry) Register(name string, fn any) {
	r.funcs[name] = fn
}

// Funcs returns a copy of the registered functions.
func (r *Registry) Funcs() map[string]any {
	out := make(map[string]any, len(r.funcs))
	for name, fn := range r.funcs {
		out[name] = fn
	}
	return out
}

func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

func funcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func funcTimestamp() int64 {
	return time.Now().Unix()
}

func funcTimestampMs() int64 {
	return time.Now().UnixMilli()
}

func funcUUID() string {
	return uuid.New().String()
}

func funcRandom(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("random: max %d is less than min %d", max, min)
	}
	return rand.Intn(max-min+1) + min, nil
}

func funcRandomString(length int) string {
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
}

func funcRandomEmail() string {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain)
}

func funcRandomAlphanumeric(length int) string {
	return randomString(length, "abcdefghijklmnopqrstuvwxyz0123456789")
}

func funcBase64(value string) string {
	return base64.StdEncoding.EncodeToString([]byte(value))
}

func funcBase64Decode(value string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("base64Decode: %w", err)
	}
	return string(decoded), nil
}

func funcMD5(value string) string {
	hash := md5.Sum([]byte(value))
	return hex.EncodeToString(hash[:])
}

func funcSHA256(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}

func funcURLDecode(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

func funcDate(format ...string) string {
	layout := "2006-01-02"
	if len(format) > 0 {
		layout = format[0]
	}
	return time.Now().UTC().Format(layout)
}

func funcJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("json: %w", err)
	}
	return string(data), nil
}

// funcPath looks up a gjson path in a decoded value or a raw JSON string.
func funcPath(value any, path string) (any, error) {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		raw = data
	}

	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func funcShellQuote(value any) string {
	return shellescape.Quote(fmt.Sprint(value))
}

func randomString(length int, charset string) string {
	if length <= 0 {
		return ""
	}
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
