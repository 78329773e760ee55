package storage

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Object storage configuration via environment variables:
// STORAGE_ENDPOINT, STORAGE_REGION, STORAGE_BUCKET, STORAGE_ACCESS_KEY,
// STORAGE_SECRET_KEY, STORAGE_PUBLIC_URL (optional CDN prefix)

var objectsConf struct {
	endpoint  string
	region    string
	bucket    string
	accessKey string
	secretKey string
	publicURL string
}

var objectsClient = &http.Client{Timeout: 60 * time.Second}

func InitializeObjects() {
	objectsConf.endpoint = strings.TrimSuffix(os.Getenv("STORAGE_ENDPOINT"), "/")
	objectsConf.region = os.Getenv("STORAGE_REGION")
	if objectsConf.region == "" {
		objectsConf.region = "us-east-1"
	}
	objectsConf.bucket = os.Getenv("STORAGE_BUCKET")
	objectsConf.accessKey = os.Getenv("STORAGE_ACCESS_KEY")
	objectsConf.secretKey = os.Getenv("STORAGE_SECRET_KEY")
	objectsConf.publicURL = strings.TrimSuffix(os.Getenv("STORAGE_PUBLIC_URL"), "/")
	if objectsConf.publicURL == "" {
		objectsConf.publicURL = objectsConf.endpoint + "/" + objectsConf.bucket
	}

	if objectsConf.endpoint == "" || objectsConf.bucket == "" {
		log.Println("⚠️  STORAGE_ENDPOINT/STORAGE_BUCKET not set, object uploads will fail")
		return
	}

	log.Println("🔧 Object storage initialized with bucket:", objectsConf.bucket)
}

// ObjectURL returns the public URL for a stored key.
func ObjectURL(key string) string {
	return objectsConf.publicURL + "/" + key
}

// UploadObject PUTs data under key and returns its public URL.
func UploadObject(key string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequest(http.MethodPut, objectsConf.endpoint+"/"+objectsConf.bucket+"/"+key, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	signV4(req, data, time.Now().UTC())

	resp, err := objectsClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("object upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return ObjectURL(key), nil
}

// DeleteObject removes a stored key. Missing keys are not an error.
func DeleteObject(key string) error {
	req, err := http.NewRequest(http.MethodDelete, objectsConf.endpoint+"/"+objectsConf.bucket+"/"+key, nil)
	if err != nil {
		return err
	}
	signV4(req, nil, time.Now().UTC())

	resp, err := objectsClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("object delete failed with status %d", resp.StatusCode)
	}
	return nil
}

// signV4 signs the request with AWS Signature Version 4. Same hand-rolled
// approach as the rest of this package: no SDK, just the canonical string
// and the HMAC chain.
func signV4(req *http.Request, payload []byte, now time.Time) {
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	payloadHash := hexSHA256(payload)

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	signedHeaders := "host;x-amz-content-sha256;x-amz-date"
	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		"host:" + req.URL.Host,
		"x-amz-content-sha256:" + payloadHash,
		"x-amz-date:" + amzDate,
		"",
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := dateStamp + "/" + objectsConf.region + "/s3/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	kDate := hmacSHA256([]byte("AWS4"+objectsConf.secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, objectsConf.region)
	kService := hmacSHA256(kRegion, "s3")
	kSigning := hmacSHA256(kService, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(kSigning, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		objectsConf.accessKey, scope, signedHeaders, signature,
	))
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
