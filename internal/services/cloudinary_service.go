package services

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CloudinaryService implements BlobStore against Cloudinary's upload REST
// API. Transformation happens server-side on Cloudinary; thumbnails are
// derived delivery URLs and cost no extra upload.
type CloudinaryService struct {
	CloudName  string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
	UploadURL  string
	DestroyURL string
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) *CloudinaryService {
	base := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image", cloudName)
	return &CloudinaryService{
		CloudName:  cloudName,
		APIKey:     apiKey,
		APISecret:  apiSecret,
		UploadURL:  base + "/upload",
		DestroyURL: base + "/destroy",
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sign builds the Cloudinary request signature: SHA-1 over the sorted
// params (excluding file and api_key) concatenated with the API secret.
func (c *CloudinaryService) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "file" || k == "api_key" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Bytes     int    `json:"bytes"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *CloudinaryService) Upload(ctx context.Context, data []byte, opts UploadOptions) (*BlobInfo, error) {
	crop := opts.CropMode
	if crop == "" {
		crop = "limit"
	}
	quality := opts.Quality
	if quality == "" {
		quality = "auto:good"
	}

	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	if opts.Folder != "" {
		params.Set("folder", opts.Folder)
	}
	if opts.MaxDim > 0 {
		params.Set("transformation", fmt.Sprintf("c_%s,w_%d,h_%d,q_%s", crop, opts.MaxDim, opts.MaxDim, quality))
	}
	params.Set("signature", c.sign(params))
	params.Set("api_key", c.APIKey)
	params.Set("file", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out cloudinaryUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error.Message != "" {
			return nil, fmt.Errorf("cloudinary upload: %s", out.Error.Message)
		}
		return nil, fmt.Errorf("cloudinary upload http %d", resp.StatusCode)
	}

	info := &BlobInfo{
		URL:       out.SecureURL,
		PublicID:  out.PublicID,
		SizeBytes: out.Bytes,
	}
	if opts.Thumbnail {
		info.ThumbURL = c.thumbnailURL(out.PublicID)
	}
	return info, nil
}

// thumbnailURL builds a face-aware 300x300 delivery URL for a stored image.
func (c *CloudinaryService) thumbnailURL(publicID string) string {
	return fmt.Sprintf(
		"https://res.cloudinary.com/%s/image/upload/w_300,h_300,c_fill,g_face,q_auto:eco/%s",
		c.CloudName,
		publicID,
	)
}

func (c *CloudinaryService) Delete(ctx context.Context, publicID string) error {
	params := url.Values{}
	params.Set("public_id", publicID)
	params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	params.Set("signature", c.sign(params))
	params.Set("api_key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.DestroyURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary destroy http %d", resp.StatusCode)
	}
	return nil
}
