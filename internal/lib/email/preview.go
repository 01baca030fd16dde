package email

// PreviewData holds sample values for rendering each template locally.
var PreviewData = map[Template]map[string]string{
	TemplateProcessEvent: {
		"Event":     "started",
		"ClientID":  "42",
		"OIB":       "12345678901",
		"FirstName": "Ana",
		"LastName":  "Horvat",
		"Status":    "STARTED",
	},
}

// Preview renders templateName with its sample data.
func Preview(templateName Template) (string, error) {
	return Render(templateName, PreviewData[templateName])
}
