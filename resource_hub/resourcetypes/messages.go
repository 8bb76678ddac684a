package resourcetypes

// User-facing validation messages. These become the resource's status text,
// so they are written for the person who uploaded the file.
const (
	MsgParseError = "There was an unexpected problem when parsing and validating the file."

	MsgParserNotFound = "Could not find an appropriate parser for the resource. Please check the instructions."

	MsgNonNumeric = "The following columns contained non-numeric entries: %s"

	MsgNonInteger = "The following columns contained non-integer entries: %s"

	MsgTrivialTable = "The file contained only a single column which provided an index. " +
		"No data was provided in additional columns."

	MsgBedFormat = "When parsing the BED file, we detected issues with column(s): %s. " +
		"Note that BED files must NOT have column headers and can contain only integers " +
		"in the second and third columns, which correspond to the start and end of a " +
		"genomic location. Please check your entries and ensure your file does not have " +
		"a header line."

	MsgNumberedColumns = "All the column names were numbers. Often this is due to a " +
		"missing column header. In that case, there will be a missing row in your table. " +
		"If you named your columns with numbers, please change them to something else " +
		"to avoid incorrect parsing of the file."

	MsgNumberedRows = "All the row names were numbers. We use the first column to " +
		"uniquely identify the rows for filtering purposes. If you named your rows with " +
		"numbers, please change them to something else (e.g. add \"x\" to the beginning) " +
		"to avoid incorrect parsing of the file."

	MsgDuplicateRowNames = "Your row names were not unique, which could cause unexpected behavior."

	MsgMissingHeaderWarning = "One of your column names matched the values in the " +
		"corresponding column. This is not an error, but may indicate that a proper " +
		"header line was missing. Please check to ensure the file was parsed correctly."

	MsgEmptyTable = "The parsed table was empty. If you are trying to import an Excel " +
		"spreadsheet, please ensure that the data is contained in the first sheet of " +
		"the workbook."
)
