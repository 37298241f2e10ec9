package errno

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrParameterInvalid = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound         = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 业务错误码
	ErrMissingParam        = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrInputPathRequired   = &Errno{Code: 20002, Message: "Input path is required"}
	ErrInputNotFound       = &Errno{Code: 20003, Message: "Input file does not exist"}
	ErrInputDirRequired    = &Errno{Code: 20004, Message: "Input directory is required"}
	ErrJobNotFound         = &Errno{Code: 20005, Message: "Job not found"}
	ErrJobNotRetryable     = &Errno{Code: 20006, Message: "Job is not in a retryable status"}
	ErrConcurrencyRequired = &Errno{Code: 20007, Message: "Concurrency value is required"}
	ErrNoMediaFiles        = &Errno{Code: 20008, Message: "No media files found in directory"}
)
