package workflow

import "github.com/swarnavarsha1/gmail-outlook-automation/internal/core"

// NodeID identifies a step of the workflow graph
type NodeID int

const (
	NodeLoadInbox NodeID = iota
	NodeInboxEmptyCheck
	NodeCategorize
	NodeConstructRAGQueries
	NodeRetrieveFromRAG
	NodeEmailWriter
	NodeProofreader
	NodeSendEmail
	NodeSkipUnrelated
	NodeIdentifySamsaraQuery
	NodeFetchSamsaraData
	NodeGenerateSamsaraResponse
	NodeEnd
)

var nodeNames = map[NodeID]string{
	NodeLoadInbox:               "load_inbox_emails",
	NodeInboxEmptyCheck:         "is_email_inbox_empty",
	NodeCategorize:              "categorize_email",
	NodeConstructRAGQueries:     "construct_rag_queries",
	NodeRetrieveFromRAG:         "retrieve_from_rag",
	NodeEmailWriter:             "email_writer",
	NodeProofreader:             "email_proofreader",
	NodeSendEmail:               "send_email",
	NodeSkipUnrelated:           "skip_unrelated_email",
	NodeIdentifySamsaraQuery:    "identify_samsara_query",
	NodeFetchSamsaraData:        "fetch_samsara_data",
	NodeGenerateSamsaraResponse: "generate_samsara_response",
	NodeEnd:                     "end",
}

func (n NodeID) String() string {
	if name, ok := nodeNames[n]; ok {
		return name
	}
	return "unknown"
}

// Route is the label a node returns to select its outgoing edge
type Route string

const (
	RouteNext              Route = ""
	RouteEmpty             Route = "empty"
	RouteProcess           Route = "process"
	RouteProductRelated    Route = "product related"
	RouteSamsaraRelated    Route = "samsara related"
	RouteUnrelated         Route = "unrelated"
	RouteNotProductRelated Route = "not product related"
	RouteSend              Route = "send"
	RouteRewrite           Route = "rewrite"
)

// NodeResult is what a node hands back to the engine
type NodeResult struct {
	Route Route
}

type edge struct {
	from  NodeID
	route Route
}

var transitions = map[edge]NodeID{
	{NodeLoadInbox, RouteNext}: NodeInboxEmptyCheck,

	{NodeInboxEmptyCheck, RouteEmpty}:   NodeEnd,
	{NodeInboxEmptyCheck, RouteProcess}: NodeCategorize,

	{NodeCategorize, RouteProductRelated}:    NodeConstructRAGQueries,
	{NodeCategorize, RouteSamsaraRelated}:    NodeIdentifySamsaraQuery,
	{NodeCategorize, RouteUnrelated}:         NodeSkipUnrelated,
	{NodeCategorize, RouteNotProductRelated}: NodeEmailWriter,

	{NodeConstructRAGQueries, RouteNext}: NodeRetrieveFromRAG,
	{NodeRetrieveFromRAG, RouteNext}:     NodeEmailWriter,
	{NodeEmailWriter, RouteNext}:         NodeProofreader,

	{NodeProofreader, RouteSend}:    NodeSendEmail,
	{NodeProofreader, RouteRewrite}: NodeEmailWriter,
	{NodeProofreader, RouteProcess}: NodeCategorize,
	{NodeProofreader, RouteEmpty}:   NodeEnd,

	{NodeSendEmail, RouteNext}:     NodeInboxEmptyCheck,
	{NodeSkipUnrelated, RouteNext}: NodeInboxEmptyCheck,

	{NodeIdentifySamsaraQuery, RouteNext}:    NodeFetchSamsaraData,
	{NodeFetchSamsaraData, RouteNext}:        NodeGenerateSamsaraResponse,
	{NodeGenerateSamsaraResponse, RouteNext}: NodeProofreader,
}

// Next returns the node that follows from when it returns route
func Next(from NodeID, route Route) (NodeID, bool) {
	next, ok := transitions[edge{from, route}]
	return next, ok
}

// checkNewEmails routes out of the inbox check
func checkNewEmails(state *core.RunState) Route {
	if len(state.Emails) == 0 {
		return RouteEmpty
	}
	return RouteProcess
}

// RouteForCategory maps any category value to exactly one route. Values
// outside the known set fall through to the general writer.
func RouteForCategory(category core.Category) Route {
	switch {
	case category == core.CategoryProductEnquiry:
		return RouteProductRelated
	case category.IsSamsara():
		return RouteSamsaraRelated
	case category == core.CategoryUnrelated:
		return RouteUnrelated
	default:
		return RouteNotProductRelated
	}
}

// mustRewrite decides what happens after the proofreader. Concluding an email
// pops it from the queue and clears its transcript.
func mustRewrite(state *core.RunState, maxTrials int) Route {
	switch {
	case state.Sendable:
		state.Pop()
		state.WriterMessages = []string{}
		return RouteSend
	case state.Trials >= maxTrials:
		state.Conclude()
		if len(state.Emails) > 0 {
			return RouteProcess
		}
		return RouteEmpty
	default:
		return RouteRewrite
	}
}
