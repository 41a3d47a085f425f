package config

const GraphFileExt = ".gir.yaml"

// GraphFileExtensions are all recognized graph file extensions
var GraphFileExtensions = []string{".gir.yaml", ".gir.yml"}

// BundleFileExt is the extension for serialized graph bundles
const BundleFileExt = ".girb"

// CacheDirName is the per-project directory holding the rewrite cache
const CacheDirName = ".graphir"

// CacheFileName is the SQLite database file inside CacheDirName
const CacheFileName = "rewrite-cache.db"

// Precision names accepted by scope-enter markers and the interpreter
const (
	PrecisionHalf   = "f16"
	PrecisionSingle = "f32"
	PrecisionDouble = "f64"
)

// Built-in call targets understood by the interpreter
const (
	AddFuncName  = "add"
	SubFuncName  = "sub"
	MulFuncName  = "mul"
	DivFuncName  = "div"
	NegFuncName  = "neg"
	FMAFuncName  = "fma"
	MinFuncName  = "min"
	MaxFuncName  = "max"
	SqrtFuncName = "sqrt"
	IdFuncName   = "id"
)

// DefaultServeAddr is the default listen address for the rewrite service
const DefaultServeAddr = "127.0.0.1:7464"
