package notion

import (
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrail/features/application"
)

func TestEntryProperties_FullRecord(t *testing.T) {
	deadline := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	applied := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	rec := &application.Record{
		Company:     "Acme",
		Position:    "Backend Engineer",
		Status:      application.StatusInterview,
		Deadline:    &deadline,
		AppliedDate: applied,
		Notes:       "onsite next week",
	}

	props := entryProperties(rec)

	title, ok := props["Company"].(notionapi.TitleProperty)
	require.True(t, ok)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Acme", title.Title[0].Text.Content)

	sel, ok := props["Status"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Interview", sel.Select.Name)

	assert.Contains(t, props, "Deadline")
	assert.Contains(t, props, applicationDateProp)
	assert.Contains(t, props, "Notes")
}

func TestEntryProperties_OmitsUnsetOptionals(t *testing.T) {
	rec := &application.Record{
		Company:  "Acme",
		Position: "SWE",
		Status:   application.StatusApplied,
	}

	props := entryProperties(rec)

	assert.NotContains(t, props, "Deadline")
	assert.NotContains(t, props, "Notes")
	assert.NotContains(t, props, applicationDateProp)
}

func TestEntryFilter_UsesRichTextConditions(t *testing.T) {
	// Title properties are queried with rich_text conditions; the filter
	// struct has no title condition at all.
	filter := entryFilter("Acme", "Backend Engineer")

	require.Len(t, filter, 2)

	company, ok := filter[0].(notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, "Company", company.Property)
	require.NotNil(t, company.RichText)
	assert.Equal(t, "Acme", company.RichText.Equals)

	position, ok := filter[1].(notionapi.PropertyFilter)
	require.True(t, ok)
	assert.Equal(t, "Position", position.Property)
	require.NotNil(t, position.RichText)
	assert.Equal(t, "Backend Engineer", position.RichText.Contains)
}

func TestDatabaseSchema_CoversAllStatuses(t *testing.T) {
	schema := databaseSchema()

	sel, ok := schema["Status"].(notionapi.SelectPropertyConfig)
	require.True(t, ok)

	var names []string
	for _, opt := range sel.Select.Options {
		names = append(names, opt.Name)
	}
	assert.ElementsMatch(t, []string{"Applied", "OA", "Interview", "Offer", "Rejected"}, names)
}

func TestBlockText_ExtractsKnownKinds(t *testing.T) {
	para := &notionapi.ParagraphBlock{
		Paragraph: notionapi.Paragraph{
			RichText: []notionapi.RichText{{PlainText: "recruiter said "}, {PlainText: "two weeks"}},
		},
	}
	assert.Equal(t, "recruiter said two weeks", blockText(para))

	todo := &notionapi.ToDoBlock{
		ToDo: notionapi.ToDo{RichText: []notionapi.RichText{{PlainText: "send thank-you note"}}},
	}
	assert.Equal(t, "send thank-you note", blockText(todo))
}
