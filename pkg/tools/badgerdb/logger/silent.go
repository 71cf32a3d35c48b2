package badgerdb_logger

type (
	SilentLogger struct{}
)

func NewBadgerDBSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (l *SilentLogger) Errorf(string, ...interface{})   {}
func (l *SilentLogger) Infof(string, ...interface{})    {}
func (l *SilentLogger) Warningf(string, ...interface{}) {}
func (l *SilentLogger) Debugf(string, ...interface{})   {}
