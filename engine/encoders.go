package engine

// Well-known encoder identifiers. EncoderInMemory streams geometry and
// reports through the Callbacks sink; everything else writes files. The
// report and print encoders are auxiliary: the orchestrator adds them
// automatically alongside any file-based encoder so diagnostic output is
// still captured.
const (
	EncoderInMemory = "com.forma3d.codecs.CallbackEncoder"
	EncoderReport   = "com.forma3d.codecs.ReportEncoder"
	EncoderPrint    = "com.forma3d.codecs.PrintEncoder"
	EncoderOBJ      = "com.forma3d.codecs.OBJEncoder"
)

// Encoder option keys recognized by this layer.
const (
	// OptName names the output file an auxiliary encoder writes into.
	OptName = "name"
	// OptOutputPath names the directory file-based encoders write into.
	OptOutputPath = "outputPath"
)

// ReportFileName is the file the auxiliary report encoder redirects the
// generation report into.
const ReportFileName = "report.txt"
