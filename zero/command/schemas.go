package command

// SchemaRegistry stores argument schemas by action name. *harness.Guardrails implements it.
type SchemaRegistry interface {
	RegisterSchema(name string, schema []byte) error
}

const nameSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {"name": {"type": "string", "minLength": 1, "maxLength": 200}}
}`

// ArgumentSchemas are the JSON schemas of Action.Args per kind.
var ArgumentSchemas = map[Kind]string{
	KindOpenPage: `{
		"type": "object",
		"required": ["target"],
		"properties": {"target": {"type": "string", "minLength": 1, "maxLength": 2048}}
	}`,
	KindOpenApp:    nameSchema,
	KindCloseApp:   nameSchema,
	KindOpenFolder: nameSchema,
	KindGetNextEvents: `{
		"type": "object",
		"required": ["period"],
		"properties": {
			"period": {"type": "string", "minLength": 1},
			"count": {"type": "integer", "minimum": 1, "maximum": 50}
		}
	}`,
	KindSetNewEvent: `{
		"type": "object",
		"required": ["summary", "start", "duration_minutes", "reminder_minutes"],
		"properties": {
			"summary": {"type": "string", "minLength": 1, "maxLength": 500},
			"start": {"type": "string", "format": "date-time"},
			"duration_minutes": {"type": "integer", "minimum": 1, "maximum": 40320},
			"reminder_minutes": {"type": "integer", "minimum": 0, "maximum": 40320}
		}
	}`,
	KindStartPlaylist: `{
		"type": "object",
		"properties": {"source": {"type": "string"}}
	}`,
	KindPlaySong: `{
		"type": "object",
		"required": ["name", "artist", "playlist"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"artist": {"type": "string", "minLength": 1},
			"playlist": {"type": "string", "minLength": 1}
		}
	}`,
}

// RegisterSchemas adds ArgumentSchemas to reg.
func RegisterSchemas(reg SchemaRegistry) error {
	for kind, schema := range ArgumentSchemas {
		if err := reg.RegisterSchema(kind.String(), []byte(schema)); err != nil {
			return err
		}
	}
	return nil
}
