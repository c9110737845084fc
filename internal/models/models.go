package models

import (
	"strings"
	"time"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserDeleted   UserStatus = "deleted"
)

// MessageType is a closed variant; anything not derivable from a content-type's
// primary family falls back to TypeFile.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeVideo MessageType = "video"
	TypeAudio MessageType = "audio"
	TypeFile  MessageType = "file"
)

// TypeFromContentType derives the message type from a MIME type's primary family.
func TypeFromContentType(contentType string) MessageType {
	family, _, _ := strings.Cut(contentType, "/")
	switch strings.ToLower(strings.TrimSpace(family)) {
	case "image":
		return TypeImage
	case "video":
		return TypeVideo
	case "audio":
		return TypeAudio
	default:
		return TypeFile
	}
}

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile:
		return true
	}
	return false
}

type User struct {
	ID             int64      `json:"id,string"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	Password       []byte     `json:"-"`
	FirstName      string     `json:"firstName,omitempty"`
	LastName       string     `json:"lastName,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	Status         UserStatus `json:"status,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Channel struct {
	ID          int64     `json:"id,string"`
	OwnerID     int64     `json:"ownerID,string"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Membership struct {
	UserID    int64     `json:"userID,string"`
	ChannelID int64     `json:"channelID,string"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// FileDescriptor is what the upload path hands back: an opaque blob key plus
// the metadata needed to render and re-download the file.
type FileDescriptor struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	FileName    string `json:"fileName"`
}

// Message carries either text content or a file descriptor, never both.
type Message struct {
	ID        int64           `json:"id,string"`
	ChannelID int64           `json:"channelID,string"`
	AuthorID  int64           `json:"authorID,string"`
	Type      MessageType     `json:"type"`
	Content   string          `json:"content,omitempty"`
	File      *FileDescriptor `json:"file,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ConfigFile struct {
	Address           string
	Port              string
	TlsCert           string
	TlsKey            string
	PrintHttpRequests bool
	LogToFile         bool
	LogLevel          string
	JwtSecret         string
	SnowflakeWorkerID int64
	SelfContained     bool
	RedisAddress      string
	DbDriver          string
	DbFile            string
	DbUser            string
	DbPassword        string
	DbAddress         string
	DbPort            string
	DbDatabase        string
	FilesDir          string
	FileSignSecret    string
	SignedURLMinutes  int
}
