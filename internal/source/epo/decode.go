package epo

import (
	"encoding/json"
	"strings"
	"time"
)

// The OPS published-data payload collapses single-element lists into plain
// objects and wraps leaf text in {"$": ...}. The types below tolerate both
// shapes.

type opsResponse struct {
	WorldPatentData worldPatentData `json:"ops:world-patent-data"`
}

type worldPatentData struct {
	ExchangeDocuments exchangeDocumentsList `json:"exchange-documents"`
}

type exchangeDocumentsList []exchangeDocuments

func (l *exchangeDocumentsList) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]exchangeDocuments)(l))
}

type exchangeDocuments struct {
	ExchangeDocument documentList `json:"exchange-document"`
}

type documentList []document

func (l *documentList) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]document)(l))
}

type document struct {
	Kind              string            `json:"@kind"`
	BibliographicData bibliographicData `json:"bibliographic-data"`
}

type bibliographicData struct {
	PublicationReference reference `json:"publication-reference"`
	ApplicationReference reference `json:"application-reference"`
}

type reference struct {
	DocumentID docIDList `json:"document-id"`
}

type docIDList []docID

func (l *docIDList) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]docID)(l))
}

type docID struct {
	Type      string    `json:"@document-id-type"`
	DocNumber textValue `json:"doc-number"`
	Date      textValue `json:"date"`
}

// textValue accepts both a bare JSON string and the {"$": "..."} wrapping.
type textValue string

func (v *textValue) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*v = textValue(plain)
		return nil
	}
	var wrapped struct {
		Value string `json:"$"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*v = textValue(wrapped.Value)
	return nil
}

func unmarshalOneOrMany[T any](data []byte, out *[]T) error {
	var many []T
	if err := json.Unmarshal(data, &many); err == nil {
		*out = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*out = []T{one}
	return nil
}

// legalEvents carries the filing and grant dates extracted from one
// published-data response.
type legalEvents struct {
	ApplicationDate *time.Time
	GrantDate       *time.Time
}

// extractLegalEvents walks every exchange document. The application date
// comes from the epodoc application reference, the grant date from the
// publication reference of any B-kind document.
func extractLegalEvents(body []byte) (legalEvents, error) {
	var payload opsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return legalEvents{}, err
	}

	var events legalEvents
	for _, container := range payload.WorldPatentData.ExchangeDocuments {
		for _, doc := range container.ExchangeDocument {
			if events.ApplicationDate == nil {
				events.ApplicationDate = doc.BibliographicData.ApplicationReference.DocumentID.dateFor("epodoc")
			}
			if events.GrantDate == nil && strings.HasPrefix(doc.Kind, "B") {
				events.GrantDate = doc.BibliographicData.PublicationReference.DocumentID.anyDate()
			}
		}
	}
	return events, nil
}

// dateFor returns the parsed date of the document id with the given type.
func (l docIDList) dateFor(idType string) *time.Time {
	for _, id := range l {
		if id.Type != idType {
			continue
		}
		if d := parseOpsDate(string(id.Date)); d != nil {
			return d
		}
	}
	return nil
}

// anyDate returns the first parseable date in the list.
func (l docIDList) anyDate() *time.Time {
	for _, id := range l {
		if d := parseOpsDate(string(id.Date)); d != nil {
			return d
		}
	}
	return nil
}

func parseOpsDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("20060102", value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
