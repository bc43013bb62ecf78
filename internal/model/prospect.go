package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategoryOther is the category selection that swaps in the free-text override.
const CategoryOther = "other"

// CallRecord tracks one outreach touchpoint.
type CallRecord struct {
	Checked bool   `json:"checked" bson:"checked"`
	Notes   string `json:"notes" bson:"notes"`
}

// Prospect is a tracked sales lead (collection prospectdetails).
type Prospect struct {
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`

	// Classification
	Month         string `json:"month" bson:"month"`
	Quarter       string `json:"quarter" bson:"quarter"`
	Geo           string `json:"geo" bson:"geo"`
	LOB           string `json:"lob" bson:"lob"`
	Category      string `json:"category" bson:"category"`
	CategoryOther string `json:"categoryOther" bson:"categoryOther"`
	RAG           string `json:"rag" bson:"rag"`

	// Descriptive
	Prospect      string `json:"prospect" bson:"prospect"`
	CoreOfferings string `json:"coreOfferings" bson:"coreOfferings"`
	PrimaryNeed   string `json:"primaryNeed" bson:"primaryNeed"`
	SecondaryNeed string `json:"secondaryNeed" bson:"secondaryNeed"`
	Trace         string `json:"trace" bson:"trace"`
	SalesSPOC     string `json:"salesSpoc" bson:"salesSpoc"`
	OppID         string `json:"oppId" bson:"oppId"`
	OppDetails    string `json:"oppDetails" bson:"oppDetails"`
	Remark        string `json:"remark" bson:"remark"`

	Call1 CallRecord `json:"call1" bson:"call1"`
	Call2 CallRecord `json:"call2" bson:"call2"`
	Call3 CallRecord `json:"call3" bson:"call3"`

	// Deck and DeckPublicID always change together.
	Deck         string `json:"deck" bson:"deck"`
	DeckPublicID string `json:"deckPublicId" bson:"deckPublicId"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Calls returns the three call slots in order.
func (p *Prospect) Calls() [3]CallRecord {
	return [3]CallRecord{p.Call1, p.Call2, p.Call3}
}

// SetAttachment replaces the deck reference as a unit.
func (p *Prospect) SetAttachment(a Attachment) {
	p.Deck = a.URL
	p.DeckPublicID = a.StorageID
}

func (p *Prospect) Attachment() Attachment {
	return Attachment{URL: p.Deck, StorageID: p.DeckPublicID}
}

// Attachment is a file held in the object store.
type Attachment struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

func (a Attachment) IsZero() bool {
	return a.StorageID == "" && a.URL == ""
}

// Upload describes a file received with a request and spooled to local disk.
type Upload struct {
	LocalPath string
	Filename  string
	Size      int64
}
