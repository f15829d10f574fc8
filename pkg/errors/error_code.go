package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidExecuteOrder  ErrorCode = 102
	ErrCodeInvalidOrder         ErrorCode = 103
	ErrCodeInvalidSymbol        ErrorCode = 104
	ErrCodeInvalidDateRange     ErrorCode = 105
	ErrCodeInvalidQuantity      ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 203

	// Option chain errors (300-399)
	ErrCodeChainNotFound      ErrorCode = 300
	ErrCodeChainQueryFailed   ErrorCode = 301
	ErrCodeEmptyChain         ErrorCode = 302
	ErrCodeChainPathNotSet    ErrorCode = 303
	ErrCodeUnderlyingNotAdded ErrorCode = 304

	// Algorithm errors (400-499)
	ErrCodeAlgorithmNotLoaded    ErrorCode = 400
	ErrCodeAlgorithmInitFailed   ErrorCode = 401
	ErrCodeAlgorithmRuntimeError ErrorCode = 402
	ErrCodeVersionMismatch       ErrorCode = 403

	// Trading errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodePositionNotFound  ErrorCode = 501
	ErrCodeMarketDataMissing ErrorCode = 502
	ErrCodeSecurityNotAdded  ErrorCode = 503
	ErrCodeSecurityDelisted  ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeBacktestStateNil      ErrorCode = 600
	ErrCodeBacktestInitFailed    ErrorCode = 601
	ErrCodeBacktestConfigError   ErrorCode = 602
	ErrCodeBacktestDataPathError ErrorCode = 603
	ErrCodeBacktestNoAlgorithm   ErrorCode = 604
	ErrCodeBacktestNoDataPaths   ErrorCode = 605
	ErrCodeBacktestNoResultsDir  ErrorCode = 606
	ErrCodeBacktestNoDatasource  ErrorCode = 607

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702

	// Regression assertion errors (900-999)
	// A violated expectation in a regression scenario aborts the run.
	ErrCodeContractMismatch     ErrorCode = 900
	ErrCodeDelistingTiming      ErrorCode = 901
	ErrCodeUnexpectedSymbol     ErrorCode = 902
	ErrCodeHoldingsMismatch     ErrorCode = 903
	ErrCodeUnexpectedAssignment ErrorCode = 904
	ErrCodePortfolioNotFlat     ErrorCode = 905
)
