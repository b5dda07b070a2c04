package metadata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Parsed is token metadata extracted from a URI. Only inline data URIs
// carry a body at indexing time; remote URIs produce an identity-only
// record with empty fields.
type Parsed struct {
	ID                 string
	URI                string
	Raw                json.RawMessage
	Name               string
	Description        string
	Image              string
	AnimationURL       string
	TermsOfService     string
	SupplementalImages []string
}

type attribute struct {
	TraitType string          `json:"trait_type"`
	Value     json.RawMessage `json:"value"`
}

type tokenMetadataJSON struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	AnimationURL string      `json:"animation_url"`
	Attributes   []attribute `json:"attributes"`
}

// MetadataID derives the stable identity of a metadata document from the
// URI it was read from
func MetadataID(uri string) string {
	return crypto.Keccak256Hash([]byte(uri)).Hex()
}

// Parse extracts token metadata from a URI. Base64 and plain JSON data
// URIs are decoded inline; anything else is treated as a remote document
// and returned with identity only.
func Parse(uri string) (*Parsed, error) {
	parsed := &Parsed{
		ID:  MetadataID(uri),
		URI: uri,
	}

	body, ok, err := inlineBody(uri)
	if err != nil {
		return nil, err
	}
	if !ok {
		return parsed, nil
	}

	var doc tokenMetadataJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}

	parsed.Raw = body
	parsed.Name = doc.Name
	parsed.Description = doc.Description
	parsed.Image = doc.Image
	parsed.AnimationURL = doc.AnimationURL

	for _, attr := range doc.Attributes {
		switch strings.ToLower(attr.TraitType) {
		case "terms_of_service", "terms of service":
			var tos string
			if err := json.Unmarshal(attr.Value, &tos); err == nil {
				parsed.TermsOfService = tos
			}
		case "supplemental_images", "supplemental images":
			var images []string
			if err := json.Unmarshal(attr.Value, &images); err == nil {
				parsed.SupplementalImages = images
				continue
			}
			// Single image listed as a plain string
			var image string
			if err := json.Unmarshal(attr.Value, &image); err == nil {
				parsed.SupplementalImages = []string{image}
			}
		}
	}

	return parsed, nil
}

// inlineBody extracts the JSON body from a data URI. Returns false for
// remote URIs.
func inlineBody(uri string) ([]byte, bool, error) {
	const (
		base64Prefix = "data:application/json;base64,"
		utf8Prefix   = "data:application/json;utf8,"
		plainPrefix  = "data:application/json,"
	)

	switch {
	case strings.HasPrefix(uri, base64Prefix):
		body, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, base64Prefix))
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode base64 metadata: %w", err)
		}
		return body, true, nil
	case strings.HasPrefix(uri, utf8Prefix):
		return []byte(strings.TrimPrefix(uri, utf8Prefix)), true, nil
	case strings.HasPrefix(uri, plainPrefix):
		return []byte(strings.TrimPrefix(uri, plainPrefix)), true, nil
	default:
		return nil, false, nil
	}
}
