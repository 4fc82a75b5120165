package upload

import "blob-uploader/core/poll"

// DefaultContainer is the container the workflow uploads into unless configured otherwise.
const DefaultContainer = "test-container-x"

// Config holds the upload workflow settings.
type Config struct {
	// File is the local file to upload.
	File string `mapstructure:"file" default:"resources/s3-qrc.pdf"`
	// Container receives the blob and is deleted when the workflow ends.
	Container string `mapstructure:"container" default:"test-container-x"`
	// Poll bounds both the existence and the availability wait.
	Poll poll.Config `mapstructure:"poll"`
}
