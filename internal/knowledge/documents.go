package knowledge

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

// Payload and metadata keys shared by the indexer and the retriever.
const (
	PayloadContent  = "page_content"
	PayloadMetadata = "metadata"
	SourceKey       = "source"
)

// DoctorDocument renders one doctor as a retrievable document. The content is
// what gets embedded; the metadata carries every field plus the source id used
// to group records during incremental cleanup.
func DoctorDocument(d model.Doctor) *schema.Document {
	slots := make([]any, len(d.TimeSlots))
	for i, s := range d.TimeSlots {
		slots[i] = s
	}
	return &schema.Document{
		ID:      d.ID,
		Content: fmt.Sprintf("%s, %s, %s, %s", d.Name, d.Specialty, d.Degree, d.Experience),
		MetaData: map[string]any{
			SourceKey:      d.ID,
			"id":           d.ID,
			"name":         d.Name,
			"specialty":    d.Specialty,
			"degree":       d.Degree,
			"experience":   d.Experience,
			"availability": d.Availability,
			"time_slots":   slots,
		},
	}
}

// DoctorDocuments converts the whole catalog.
func DoctorDocuments(doctors []model.Doctor) []*schema.Document {
	docs := make([]*schema.Document, 0, len(doctors))
	for _, d := range doctors {
		docs = append(docs, DoctorDocument(d))
	}
	return docs
}
