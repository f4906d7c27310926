package services

import (
	"bytes"
	"fmt"

	"github.com/dslipak/pdf"
	"github.com/sjperalta/firma-api/internal/models"
)

// maxFieldDepth bounds recursion through /Kids
const maxFieldDepth = 16

// ExtractFormFields lists the AcroForm fields of a PDF in document order.
// Every field is typed "text"; hierarchical names are joined with dots.
func ExtractFormFields(content []byte) (fields []models.ContractField, err error) {
	// The parser panics on some malformed input
	defer func() {
		if r := recover(); r != nil {
			fields = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	acroForm := reader.Trailer().Key("Root").Key("AcroForm")
	if acroForm.IsNull() {
		return []models.ContractField{}, nil
	}

	fields = []models.ContractField{}
	seen := map[string]bool{}
	list := acroForm.Key("Fields")
	for i := 0; i < list.Len(); i++ {
		collectFields(list.Index(i), "", 0, seen, &fields)
	}
	return fields, nil
}

func collectFields(field pdf.Value, parent string, depth int, seen map[string]bool, out *[]models.ContractField) {
	if depth > maxFieldDepth || field.IsNull() {
		return
	}

	name := parent
	if partial := field.Key("T").Text(); partial != "" {
		if name != "" {
			name += "."
		}
		name += partial
	}

	kids := field.Key("Kids")
	named := 0
	for i := 0; i < kids.Len(); i++ {
		if kids.Index(i).Key("T").Text() != "" {
			named++
		}
	}

	// Widgets without their own name belong to this field
	if named == 0 {
		if name != "" && !seen[name] {
			seen[name] = true
			*out = append(*out, models.ContractField{Name: name, Type: "text"})
		}
		return
	}

	for i := 0; i < kids.Len(); i++ {
		collectFields(kids.Index(i), name, depth+1, seen, out)
	}
}
