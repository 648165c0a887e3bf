package schemagate

// Validator kinds accepted in the validators section of the config.
const (
	ValidatorKindEnum    = "enum"
	ValidatorKindExpr    = "expr"
	ValidatorKindPattern = "pattern"
)

// Output formats for the apply command.
const (
	FormatDots    = "dots"
	FormatVerbose = "verbose"
	FormatJSON    = "json"
)

// DefaultDescribeLabel is the label marking the nodes that describe a domain
// when generating a schema skeleton from an existing database.
const DefaultDescribeLabel = "domainDescribe"

// DefaultServeAddr is the listen address used by the serve command.
const DefaultServeAddr = ":8080"
