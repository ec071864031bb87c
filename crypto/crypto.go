package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
)

const encryptedDataKey = "encrypted_data"

var (
	kmsClient *kms.Client
	kmsKeyID  string
	localKey  []byte
	useKMS    bool
	mu        sync.Mutex
	loadedKey *string
)

type cryptoObj struct {
	EncryptedData string `json:"encrypted_data"`
}

// Enabled reports whether an encryption key has been configured
func Enabled() bool {
	return strings.TrimSpace(viper.GetString(constants.EncryptionKey)) != ""
}

// InitEncryption initializes encryption based on KMS key ARN or passphrase
func InitEncryption(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	key := viper.GetString(constants.EncryptionKey)
	if loadedKey != nil && *loadedKey == key {
		return nil
	}

	if strings.HasPrefix(key, "arn:aws:kms:") {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		kmsClient = kms.NewFromConfig(cfg)
		kmsKeyID = key
		useKMS = true
	} else {
		// Local AES-GCM Mode with SHA-256 derived key
		hash := sha256.Sum256([]byte(key))
		localKey = hash[:]
		useKMS = false
	}
	loadedKey = &key
	return nil
}

func Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if err := InitEncryption(ctx); err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}
	if useKMS {
		out, err := kmsClient.Encrypt(ctx, &kms.EncryptInput{
			KeyId:     &kmsKeyID,
			Plaintext: plaintext,
		})
		if err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
		return out.CiphertextBlob, nil
	}

	aead, err := localAEAD()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func Decrypt(ctx context.Context, cipherData []byte) (string, error) {
	if err := InitEncryption(ctx); err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	if useKMS {
		out, err := kmsClient.Decrypt(ctx, &kms.DecryptInput{
			CiphertextBlob: cipherData,
		})
		if err != nil {
			return "", fmt.Errorf("decryption failed: %w", err)
		}
		return string(out.Plaintext), nil
	}

	aead, err := localAEAD()
	if err != nil {
		return "", err
	}

	nonceSize := aead.NonceSize()
	if len(cipherData) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := cipherData[:nonceSize], cipherData[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}

func localAEAD() (cipher.AEAD, error) {
	block, err := aes.NewCipher(localKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptJSONString wraps a secret into the {"encrypted_data": "<base64>"} envelope
func EncryptJSONString(ctx context.Context, plaintext string) (string, error) {
	data, err := Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(cryptoObj{EncryptedData: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecryptJSONString(ctx context.Context, encryptedObjStr string) (string, error) {
	obj := cryptoObj{}
	if err := json.Unmarshal([]byte(encryptedObjStr), &obj); err != nil {
		return "", fmt.Errorf("failed to unmarshal encrypted data: %v", err)
	}
	return decryptEnvelope(ctx, obj.EncryptedData)
}

func decryptEnvelope(ctx context.Context, encoded string) (string, error) {
	encryptedData, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 data: %v", err)
	}

	decrypted, err := Decrypt(ctx, encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %v", err)
	}
	return decrypted, nil
}

// DecryptConfig resolves encrypted envelopes in a raw JSON config.
// A document that is itself an envelope decrypts to the full config; otherwise
// every nested envelope object is replaced by its decrypted string value.
func DecryptConfig(ctx context.Context, raw []byte) ([]byte, error) {
	if !Enabled() {
		return raw, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if encoded, ok := envelope(doc); ok {
		plain, err := decryptEnvelope(ctx, encoded)
		if err != nil {
			return nil, err
		}
		return []byte(plain), nil
	}

	resolved, err := decryptTree(ctx, doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resolved)
}

func decryptTree(ctx context.Context, node any) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if encoded, ok := envelope(v); ok {
			return decryptEnvelope(ctx, encoded)
		}
		for key, child := range v {
			resolved, err := decryptTree(ctx, child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			v[key] = resolved
		}
		return v, nil
	case []any:
		for idx, child := range v {
			resolved, err := decryptTree(ctx, child)
			if err != nil {
				return nil, err
			}
			v[idx] = resolved
		}
		return v, nil
	default:
		return node, nil
	}
}

func envelope(node any) (string, bool) {
	obj, ok := node.(map[string]any)
	if !ok || len(obj) != 1 {
		return "", false
	}
	encoded, ok := obj[encryptedDataKey].(string)
	return encoded, ok
}
