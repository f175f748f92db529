package parsing

// ParsedCell is one (level, competency) intersection recovered from the
// source document, carrying the requirement text for that cell.
type ParsedCell struct {
	Level      string `json:"level"`
	Competency string `json:"competency"`
	Definition string `json:"definition"`
}

// ParsedGuide is the structured form of a leveling guide. Level and
// competency order follows the model's response, which mirrors the source
// document; nothing here is re-sorted.
type ParsedGuide struct {
	Levels       []string     `json:"levels"`
	Competencies []string     `json:"competencies"`
	Cells        []ParsedCell `json:"cells"`
}
