package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askQuestionTool defines the ask_question MCP tool.
var askQuestionTool = mcp.NewTool("ask_question",
	mcp.WithDescription("Look up a caller's question in the learned answers. If nothing matches, the question is escalated to a human supervisor and a request id is returned."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The caller's question, as asked"),
	),
	mcp.WithString("customer_id",
		mcp.Required(),
		mcp.Description("Identifier of the caller, such as the call or room id"),
	),
	mcp.WithString("callback_ref",
		mcp.Description("Where to deliver the supervisor's answer: an http(s) URL or a pub/sub channel suffix"),
	),
)

// checkRequestTool defines the check_request MCP tool.
var checkRequestTool = mcp.NewTool("check_request",
	mcp.WithDescription("Check whether a supervisor has answered an escalated request. Optionally waits for an answer."),
	mcp.WithString("request_id",
		mcp.Required(),
		mcp.Description("The id returned by ask_question"),
	),
	mcp.WithNumber("wait_seconds",
		mcp.Description("Seconds to wait for an answer before returning (default 0, max 60)"),
	),
)

// getBusinessInfoTool defines the get_business_info MCP tool.
var getBusinessInfoTool = mcp.NewTool("get_business_info",
	mcp.WithDescription("Get the business profile: name, address, phone, hours, services and booking details."),
)
