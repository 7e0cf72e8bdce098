package ctdf

// SourceFile records whether a publication file has been fully ingested
type SourceFile struct {
	SourceFileName string `json:"sourceFileName" bson:"sourcefilename"`
	Processed      bool   `json:"processed" bson:"processed"`
}
