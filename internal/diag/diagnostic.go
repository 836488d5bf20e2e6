package diag

type Note struct {
	Path string
	Line int
	Msg  string
}

// Diagnostic is one rendered finding.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Kind     Kind
	Message  string
	Path     string // пусто для текста не из файла
	Line     int
	Column   int
	Text     string // строка исходника целиком
	Notes    []Note
}

func New(sev Severity, code Code, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Kind:     code.Kind(),
		Message:  msg,
	}
}

func NewError(code Code, msg string) Diagnostic {
	return New(SevError, code, msg)
}

// At returns d positioned at path:line:col.
func (d Diagnostic) At(path string, line, col int) Diagnostic {
	d.Path, d.Line, d.Column = path, line, col
	return d
}

func (d Diagnostic) WithNote(msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Msg: msg})
	return d
}
