// internal/common/kafka/topics.go
package kafka

// Topic names follow the <name>-events / <name>-events-dlt pairing convention
// used across the platform. verification-backlog holds intake submissions
// that found no batch capacity; a scheduled re-drive feeds it back into
// application-events.
const (
	TopicApplicationEvents    = "application-events"
	TopicApplicationLifecycle = "application-lifecycle"
	TopicVerificationEvents   = "verification-events"
	TopicInsuranceEvents      = "insurance-events"
	TopicDocumentEvents       = "document-events"
	TopicWorkflowEvents       = "workflow-events"
	TopicVerificationBacklog  = "verification-backlog"

	dltSuffix = "-dlt"
)

// DLT returns the dead-letter pair of a topic.
func DLT(topic string) string {
	return topic + dltSuffix
}
