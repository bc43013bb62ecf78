package prospect

import (
	"fmt"
	"time"

	"prospect-tracker-api/internal/form"
	"prospect-tracker-api/internal/model"
)

// textField binds a submission key to the record field it fills.
type textField struct {
	key string
	ref func(p *model.Prospect) *string
}

// textFields are the free-text fields shared by create and update.
// category, categoryOther and oppId have their own rules.
var textFields = []textField{
	{"month", func(p *model.Prospect) *string { return &p.Month }},
	{"quarter", func(p *model.Prospect) *string { return &p.Quarter }},
	{"prospect", func(p *model.Prospect) *string { return &p.Prospect }},
	{"geo", func(p *model.Prospect) *string { return &p.Geo }},
	{"lob", func(p *model.Prospect) *string { return &p.LOB }},
	{"coreOfferings", func(p *model.Prospect) *string { return &p.CoreOfferings }},
	{"primaryNeed", func(p *model.Prospect) *string { return &p.PrimaryNeed }},
	{"secondaryNeed", func(p *model.Prospect) *string { return &p.SecondaryNeed }},
	{"trace", func(p *model.Prospect) *string { return &p.Trace }},
	{"salesSpoc", func(p *model.Prospect) *string { return &p.SalesSPOC }},
	{"oppDetails", func(p *model.Prospect) *string { return &p.OppDetails }},
	{"rag", func(p *model.Prospect) *string { return &p.RAG }},
	{"remark", func(p *model.Prospect) *string { return &p.Remark }},
}

func callRef(p *model.Prospect, n int) *model.CallRecord {
	switch n {
	case 1:
		return &p.Call1
	case 2:
		return &p.Call2
	default:
		return &p.Call3
	}
}

// DefaultOppID is the business id given to records submitted without one.
func DefaultOppID(now time.Time) string {
	return fmt.Sprintf("OPP-%d", now.UnixMilli())
}

// BuildProspect assembles a new record from a submission.
func BuildProspect(values form.Values, att model.Attachment, now time.Time) *model.Prospect {
	p := &model.Prospect{
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, f := range textFields {
		*f.ref(p) = values.String(f.key)
	}

	for n := 1; n <= form.CallSlots; n++ {
		*callRef(p, n) = values.Call(n).Resolve("")
	}

	p.Category, p.CategoryOther = ResolveCategory(values.String("category"), values.String("categoryOther"))
	p.OppID = values.Field("oppId").Or(DefaultOppID(now))
	p.SetAttachment(att)

	return p
}

// MergeProspect applies a partial submission on top of existing.
//
// A text field changes only when the submitted value is non-empty. Call notes
// keep their prior value only when no notes field was sent at all, while
// checked falls back to false. oppId and createdAt always carry over. A nil
// att keeps the current deck.
func MergeProspect(existing *model.Prospect, values form.Values, att *model.Attachment, now time.Time) *model.Prospect {
	merged := *existing

	for _, f := range textFields {
		*f.ref(&merged) = values.Field(f.key).Or(*f.ref(existing))
	}

	for n := 1; n <= form.CallSlots; n++ {
		*callRef(&merged, n) = values.Call(n).Resolve(callRef(existing, n).Notes)
	}

	merged.Category, merged.CategoryOther = ResolveCategoryUpdate(
		values.String("category"), values.String("categoryOther"),
		existing.Category, existing.CategoryOther,
	)

	if att != nil {
		merged.SetAttachment(*att)
	}

	merged.OppID = existing.OppID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = now

	return &merged
}
