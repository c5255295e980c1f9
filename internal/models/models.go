package models

import "time"

// StorageKind tells how video bytes are laid out on disk.
type StorageKind string

const (
	StorageProgressive StorageKind = "progressive"
	StorageSegmented   StorageKind = "segmented"
)

// Tier is the derived permission level for a playback request.
type Tier string

const (
	TierGuest   Tier = "guest"
	TierPreview Tier = "preview"
	TierFull    Tier = "full"
)

const ErrVideoID int64 = 0

type Video struct {
	ID             int64       `json:"id"`
	Handle         string      `json:"handle"`
	Title          string      `json:"title"`
	Premium        bool        `json:"premium"`
	PreviewSeconds int64       `json:"previewSeconds"`
	Active         bool        `json:"active"`
	StorageKind    StorageKind `json:"storageKind"`
	Views          int64       `json:"views"`
}

// Viewer is the authenticated identity supplied per request.
// A nil *Viewer means an anonymous (guest) request.
type Viewer struct {
	ID               int64 `json:"id"`
	PaymentCompleted bool  `json:"paymentCompleted"`
}

// Entitlement is computed fresh per request, never stored.
// PreviewSeconds == 0 means no duration cap.
type Entitlement struct {
	Tier           Tier
	PreviewSeconds int64
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	ViewerID  *int64
	VideoID   int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MediaRepresentation points to resolved bytes on storage.
// Progressive: Path is the media file, Size its byte length.
// Segmented: Path is the manifest, Dir the segment directory.
type MediaRepresentation struct {
	Kind StorageKind
	Path string
	Dir  string
	Size int64
}

type PlaybackGrant struct {
	Token            string `json:"token,omitempty"`
	StreamURL        string `json:"streamUrl"`
	Tier             Tier   `json:"tier"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
	PreviewSeconds   *int64 `json:"previewDurationSeconds,omitempty"`
}

type AdminIn struct {
	Login string `json:"login"`
	Pass  string `json:"pass"`
}

const (
	RootID    int64 = -1
	RootLogin       = "root"
)
