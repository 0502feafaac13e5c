package mutation

// StripFencesForTest exposes stripFences.
var StripFencesForTest = stripFences

// SoleCodeBlockForTest exposes soleCodeBlock.
var SoleCodeBlockForTest = soleCodeBlock
