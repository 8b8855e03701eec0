package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

var std = log.New(os.Stdout, "", 0)

func Init() {
	Info("logger initialized", nil)
}

func emit(level, msg string, fields map[string]any) {
	line := map[string]any{
		"level": level,
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"msg":   msg,
	}
	for k, v := range fields {
		line[k] = v
	}

	b, err := json.Marshal(line)
	if err != nil {
		std.Printf(`{"level":"ERROR","msg":"logger: unmarshalable fields","original_msg":%q}`, msg)
		return
	}
	std.Println(string(b))
}

func Info(msg string, fields map[string]any) {
	emit("INFO", msg, fields)
}

func Warn(msg string, fields map[string]any) {
	emit("WARN", msg, fields)
}

func Error(msg string, fields map[string]any) {
	emit("ERROR", msg, fields)
}

func Fatal(msg string, fields map[string]any) {
	emit("FATAL", msg, fields)
	os.Exit(1)
}
