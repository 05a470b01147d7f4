package mapper

import (
	"github.com/djoshea/imatlab/src/imatlab/entity"
	"github.com/djoshea/imatlab/src/imatlab/model"
)

// DocumentToModel converts a document entity to its repository model.
func DocumentToModel(doc entity.Document) model.Document {
	return model.Document{
		UUID:       doc.UUID,
		URI:        doc.URI,
		TempPath:   doc.TempPath,
		LanguageID: doc.LanguageID,
		Text:       doc.Text,
	}
}

// DocumentFromModel converts a repository model back to a document entity.
func DocumentFromModel(doc model.Document) entity.Document {
	return entity.Document{
		UUID:       doc.UUID,
		URI:        doc.URI,
		TempPath:   doc.TempPath,
		LanguageID: doc.LanguageID,
		Text:       doc.Text,
	}
}
