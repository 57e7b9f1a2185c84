/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type LogLevel int

const (
	LogPrefix     = "[go-fuel] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

func (l LogLevel) String() string {
	for name, level := range levelMapping {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ErrWrongLevel returned when a level name is not one of HelpLevels
type ErrWrongLevel struct {
	Level string
}

func (e ErrWrongLevel) Error() string {
	return fmt.Sprintf("Wrong log level %q. %s", e.Level, HelpLevels)
}

type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	out   io.Writer
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	out:    os.Stderr,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

// ParseLevel converts a level name into LogLevel
func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelMapping[strLevel]
	if !ok {
		return ErrorLevel, ErrWrongLevel{Level: strLevel}
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.mu.Lock()
	logger.level = level
	logger.mu.Unlock()
	return nil
}

func Level() LogLevel {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.level
}

// Init redirects the output and sets the level. An unknown level falls back to info.
func Init(out io.Writer, strLevel string) {
	logger.mu.Lock()
	logger.out = out
	logger.SetOutput(out)
	logger.mu.Unlock()
	if err := SetLevel(strLevel); err != nil {
		_ = SetLevel("info")
		Warning("%s", err)
	}
}

// Writer returns the writer the logger currently prints to
func Writer() io.Writer {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.out
}

func enabled(level LogLevel) bool {
	return Level() >= level
}

func Error(format string, v ...interface{}) {
	if enabled(ErrorLevel) {
		logger.Println(fmt.Sprintf(ErrorPrefix+format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if enabled(WarningLevel) {
		logger.Println(fmt.Sprintf(WarningPrefix+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if enabled(InfoLevel) {
		logger.Println(fmt.Sprintf(InfoPrefix+format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if enabled(DebugLevel) {
		logger.Println(fmt.Sprintf(DebugPrefix+format, v...))
	}
}
