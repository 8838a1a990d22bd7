package models

// Attachment is the durable reference to one uploaded file. It is created on a
// successful validate+store during add-to-cart, carried on the owning cart line
// through session restore, and copied into order line metadata at checkout.
type Attachment struct {
	FilePath string `json:"file_path"` // absolute path under the storage root
	FileURL  string `json:"file_url"`  // public URL, informational, never used for serving
	FileName string `json:"file_name"` // time-prefixed generated name, no path segments
}
