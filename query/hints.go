package query

// Table hints accepted by dialects that support them.
const (
	NoLock   = "WITH (NOLOCK)"
	ReadPast = "WITH (READPAST)"
	UpdLock  = "WITH (UPDLOCK)"
	RowLock  = "WITH (ROWLOCK)"
	TabLock  = "WITH (TABLOCK)"
)
