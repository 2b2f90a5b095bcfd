package user

import (
	"strings"
	"time"
)

const (
	ServiceWebsite = "website"
	ServiceGoogle  = "google"
	ServiceGithub  = "github"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const (
	avatarMale   = "https://img.icons8.com/dotty/256/user-male.png"
	avatarFemale = "https://img.icons8.com/dotty/256/user-female.png"
	avatarOther  = "https://img.icons8.com/ios/256/drag-gender-neutral.png"
)

// birthDateLayout is the only accepted birth_date format.
const birthDateLayout = "2006-01-02"

type User struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Password    string    `json:"password,omitempty"`
	Gender      string    `json:"gender"`
	Service     string    `json:"service"`
	BirthDate   string    `json:"birth_date,omitempty"`
	AvatarImage string    `json:"avatar_image"`
	IsAdmin     bool      `json:"is_admin"`
	IsBlocked   bool      `json:"is_blocked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter selects users matching any of its non-empty fields.
// ExcludeID, when set, removes that record from the match set.
type Filter struct {
	Email     string
	Username  string
	Phone     string
	ExcludeID string
}

func (f Filter) empty() bool {
	return f.Email == "" && f.Username == "" && f.Phone == ""
}

func (f Filter) matches(u User) bool {
	if f.ExcludeID != "" && u.ID == f.ExcludeID {
		return false
	}
	return (f.Email != "" && u.Email == f.Email) ||
		(f.Username != "" && u.Username == f.Username) ||
		(f.Phone != "" && u.Phone == f.Phone)
}

// Patch is a partial update. A nil field is left untouched.
type Patch struct {
	FirstName   *string
	LastName    *string
	Password    *string
	Username    *string
	Gender      *string
	Email       *string
	Phone       *string
	BirthDate   *string
	AvatarImage *string
	IsAdmin     *bool
	IsBlocked   *bool
}

// Apply copies every present field of p onto u.
func (p Patch) Apply(u User) User {
	setString(&u.FirstName, p.FirstName)
	setString(&u.LastName, p.LastName)
	setString(&u.Password, p.Password)
	setString(&u.Username, p.Username)
	setString(&u.Gender, p.Gender)
	setString(&u.Email, p.Email)
	setString(&u.Phone, p.Phone)
	setString(&u.BirthDate, p.BirthDate)
	setString(&u.AvatarImage, p.AvatarImage)
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.IsBlocked != nil {
		u.IsBlocked = *p.IsBlocked
	}
	return u
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// IsServiceType reports whether value is one of the known account origins.
func IsServiceType(value string) bool {
	switch value {
	case ServiceWebsite, ServiceGoogle, ServiceGithub:
		return true
	default:
		return false
	}
}

// ParseGender normalises a gender tag. ok is false for anything outside
// male, female and other.
func ParseGender(value string) (gender string, ok bool) {
	switch g := strings.ToLower(strings.TrimSpace(value)); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, true
	default:
		return "", false
	}
}

// DefaultAvatar returns the stock avatar for a gender tag.
func DefaultAvatar(gender string) (string, bool) {
	g, ok := ParseGender(gender)
	if !ok {
		return "", false
	}
	switch g {
	case GenderMale:
		return avatarMale, true
	case GenderFemale:
		return avatarFemale, true
	default:
		return avatarOther, true
	}
}

func validBirthDate(value string) bool {
	_, err := time.Parse(birthDateLayout, value)
	return err == nil
}

func sanitizeUser(user User) User {
	user.Password = ""
	return user
}
