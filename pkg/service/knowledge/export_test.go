package knowledge

// SplitText exposes the chunker for tests
var SplitText = splitText
