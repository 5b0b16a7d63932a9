package gemini

// Schema declares the JSON shape the model output is constrained to,
// serialised as the generateContent responseSchema
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

const (
	typeObject  = "OBJECT"
	typeArray   = "ARRAY"
	typeString  = "STRING"
	typeInteger = "INTEGER"
)

// suggestionSchema describes a single suggestion object. kinds constrains
// the type enum; pass both kind values for unconstrained lookups.
func suggestionSchema(kinds []string) *Schema {
	return &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"title":       {Type: typeString},
			"type":        {Type: typeString, Enum: kinds},
			"genres":      {Type: typeArray, Items: &Schema{Type: typeString}},
			"description": {Type: typeString},
			"posterUrl":   {Type: typeString},
		},
		Required: []string{"title", "type", "genres", "description"},
	}
}

// suggestionListSchema describes a list of suggestion objects
func suggestionListSchema(kinds []string) *Schema {
	return &Schema{
		Type:  typeArray,
		Items: suggestionSchema(kinds),
	}
}

// completionListSchema describes a list of autocomplete candidates
func completionListSchema(kinds []string) *Schema {
	return &Schema{
		Type: typeArray,
		Items: &Schema{
			Type: typeObject,
			Properties: map[string]*Schema{
				"title": {Type: typeString},
				"type":  {Type: typeString, Enum: kinds},
				"year":  {Type: typeInteger},
			},
			Required: []string{"title", "type"},
		},
	}
}
