package email

// Template names an embedded HTML template under templates/.
type Template string

const (
	// TemplateProcessEvent reports a started or stopped card making process.
	TemplateProcessEvent Template = "process_event"
)

// Templates lists every embedded template.
var Templates = []Template{TemplateProcessEvent}
