package util

import (
	"fmt"
	"net/http"

	"weread-agent/internal/app/models"
)

// WriteSSE 输出一条扁平化的事件：type 与事件字段位于同一层
func WriteSSE(w http.ResponseWriter, eventType string, data interface{}) error {
	var event map[string]interface{}

	switch v := data.(type) {
	case models.HeartbeatEvent:
		event = map[string]interface{}{
			"type": eventType,
		}
	case models.SessionEvent:
		event = map[string]interface{}{
			"type":   eventType,
			"taskId": v.TaskID,
			"query":  v.Query,
		}
	case models.SetAnswerEvent:
		event = map[string]interface{}{
			"type":     eventType,
			"markdown": v.Markdown,
			"answered": v.Answered,
			"final":    v.Final,
		}
	case models.SetReferenceEvent:
		list := v.List
		if list == nil {
			list = []models.Citation{}
		}
		event = map[string]interface{}{
			"type":   eventType,
			"taskId": v.TaskID,
			"list":   list,
		}
	case models.ErrorEvent:
		event = map[string]interface{}{
			"type":    eventType,
			"message": v.Message,
		}
	default:
		if m, ok := data.(map[string]interface{}); ok {
			m["type"] = eventType
			event = m
		} else {
			return fmt.Errorf("unsupported event data type: %T", data)
		}
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", bytes); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func WriteHeartbeat(w http.ResponseWriter) error {
	return WriteSSE(w, "heartbeat", models.HeartbeatEvent{})
}

func WriteSession(w http.ResponseWriter, taskID, query string) error {
	return WriteSSE(w, "session", models.SessionEvent{TaskID: taskID, Query: query})
}

// WriteView 把一个合并视图拆成回答和引用两条事件
func WriteView(w http.ResponseWriter, taskID string, view models.MergedView) error {
	if err := WriteSetAnswer(w, view); err != nil {
		return err
	}
	return WriteSetReference(w, taskID, view.Citations)
}

func WriteSetAnswer(w http.ResponseWriter, view models.MergedView) error {
	return WriteSSE(w, "set-answer", models.SetAnswerEvent{
		Markdown: view.AnswerText,
		Answered: view.Answered,
		Final:    view.Final,
	})
}

func WriteSetReference(w http.ResponseWriter, taskID string, list []models.Citation) error {
	return WriteSSE(w, "set-reference", models.SetReferenceEvent{
		TaskID: taskID,
		List:   list,
	})
}

func WriteError(w http.ResponseWriter, message string) error {
	return WriteSSE(w, "error", models.ErrorEvent{Message: message})
}

func WriteDone(w http.ResponseWriter) {
	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
