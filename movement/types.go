package movement

// Movement represents a single docketed event in a case's history.
// Field names follow the wire contract of the consulta endpoint.
type Movement struct {
	Seq            string     `json:"seq"`
	Data           string     `json:"data"`
	Evento         string     `json:"evento"`
	MovimentadoPor string     `json:"movimentado_por"`
	Documentos     []Document `json:"documentos,omitempty"`
}

// Document is a reference attached to a movement, usually a link to a
// filed petition or decision.
type Document struct {
	Descricao string `json:"descricao"`
	URL       string `json:"url"`
}

// HasDocuments reports whether the movement carries document references.
func (m *Movement) HasDocuments() bool {
	return len(m.Documentos) > 0
}
