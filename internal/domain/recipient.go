package domain

type Member struct {
	ID       int64  `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Relation string `json:"relation,omitempty"`
}

type Address struct {
	ID       int64  `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Label    string `json:"label,omitempty"`
	Line1    string `json:"addressLine1"`
	Line2    string `json:"addressLine2,omitempty"`
	Landmark string `json:"landmark,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

type RecipientKind string

const (
	KindMember  RecipientKind = "member"
	KindAddress RecipientKind = "address"
)

func ParseRecipientKind(s string) (RecipientKind, bool) {
	switch s {
	case "member", "members":
		return KindMember, true
	case "address", "addresses":
		return KindAddress, true
	}
	return "", false
}
