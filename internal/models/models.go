package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Socials menyimpan link sosial media user sebagai key-value,
// dipersist ke kolom JSONB.
type Socials map[string]string

func (s Socials) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	// Dikirim sebagai string supaya lib/pq tidak mengencode-nya sebagai bytea
	return string(b), nil
}

func (s *Socials) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = Socials{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("socials: unsupported scan type")
	}
}

type User struct {
	ID               int            `json:"id"`
	Email            string         `json:"email"`
	Password         string         `json:"-"`
	Name             string         `json:"name"`
	Rating           int            `json:"rating"`
	Image            sql.NullString `json:"-"`
	ImageURL         string         `json:"image"`
	CreatedTasks     int            `json:"created_tasks"`
	CompletedTasks   int            `json:"completed_tasks"`
	AboutMe          string         `json:"about_me"`
	Socials          Socials        `json:"socials"`
	IsVerified       bool           `json:"is_verified"`
	VerificationCode sql.NullString `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Price membungkus decimal.Decimal supaya selalu diserialisasi dengan
// dua digit pecahan. MarshalJSON bawaan decimal membuang trailing zero,
// sehingga NUMERIC(10,2) bernilai 10.00 keluar sebagai "10".
type Price struct {
	decimal.Decimal
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.StringFixed(2) + `"`), nil
}

// Kategori task yang boleh disimpan. "all" hanya dipakai sebagai
// nilai filter di query list, tidak pernah tersimpan di database.
var TaskCategories = map[string]bool{
	"web":         true,
	"text":        true,
	"video":       true,
	"image":       true,
	"design":      true,
	"programming": true,
	"other":       true,
}

type Task struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	Category    string    `json:"category"`
	Price       Price     `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatorID   int       `json:"-"`
	Creator     *User     `json:"creator,omitempty"`
}

// TakenTask adalah claim: satu task yang sedang dikerjakan satu executor.
// Constraint UNIQUE(task_id) menjamin maksimal satu claim aktif per task.
type TakenTask struct {
	ID         int `json:"id"`
	TaskID     int `json:"task_id"`
	ExecutorID int `json:"executor_id"`
}

type Room struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	ID        int           `json:"id"`
	RoomID    int           `json:"room_id"`
	UserID    sql.NullInt64 `json:"-"`
	Content   string        `json:"content"`
	TimeStamp time.Time     `json:"time_stamp"`
}
