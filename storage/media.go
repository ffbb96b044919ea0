package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Media uploads go to Cloudinary via signed form posts.
// Configuration: CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY,
// CLOUDINARY_API_SECRET, CLOUDINARY_FOLDER (optional).

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadBase64Image uploads a base64 image (raw or data URL) and returns the
// hosted URL, or "" on failure.
func UploadBase64Image(base64Src string, publicID string) string {
	return uploadBase64(base64Src, publicID, "image", "data:image/jpeg;base64,")
}

// UploadBase64Video uploads a base64 video. The mime parameter selects the
// data URL prefix (defaults to video/mp4).
func UploadBase64Video(base64Src string, publicID string, mime string) string {
	if mime == "" {
		mime = "video/mp4"
	}
	return uploadBase64(base64Src, publicID, "video", "data:"+mime+";base64,")
}

func uploadBase64(base64Src, publicID, resourceType, dataPrefix string) string {
	if base64Src == "" {
		return ""
	}

	// Strip any data URL header the client already attached.
	payload := base64Src
	if i := strings.Index(base64Src, ","); i != -1 {
		payload = base64Src[i+1:]
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	folder := os.Getenv("CLOUDINARY_FOLDER")

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		log.Println("media upload skipped: missing Cloudinary env vars")
		return ""
	}

	finalPublicID := publicID
	if folder != "" && publicID != "" {
		finalPublicID = folder + "/" + publicID
	}

	form := url.Values{}
	form.Add("file", dataPrefix+payload)
	form.Add("api_key", apiKey)
	if finalPublicID != "" {
		form.Add("public_id", finalPublicID)
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form.Add("timestamp", timestamp)

	// Cloudinary signs public_id + timestamp with SHA1.
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", finalPublicID, timestamp, apiSecret)
	form.Add("signature", fmt.Sprintf("%x", sha1.Sum([]byte(signatureString))))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/" + resourceType + "/upload"
	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("media upload: building request failed: %v", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("media upload: request failed: %v", err)
		return ""
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.Printf("media upload: reading response failed: %v", err)
		return ""
	}

	if res.StatusCode != http.StatusOK {
		log.Printf("media upload: status %d: %s", res.StatusCode, string(body))
		return ""
	}

	var cloudRes cloudinaryResponse
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		log.Printf("media upload: bad response JSON: %v", err)
		return ""
	}
	if cloudRes.Error.Message != "" {
		log.Printf("media upload: cloudinary error: %s", cloudRes.Error.Message)
		return ""
	}

	if cloudRes.SecureURL != "" {
		return cloudRes.SecureURL
	}
	return cloudRes.URL
}
