package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listCollectionsTool = mcp.NewTool("list_collections",
	mcp.WithDescription("List the vector collections and how many chunks each one holds."),
)

var queryCollectionTool = mcp.NewTool("query_collection",
	mcp.WithDescription("Search a collection of indexed papers semantically. Returns the closest chunks with their source and distance."),
	mcp.WithString("collection",
		mcp.Required(),
		mcp.Description("Collection name, for example user_1"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
	mcp.WithString("source",
		mcp.Description("Only return chunks of this source file stem"),
	),
)

var generateSectionTool = mcp.NewTool("generate_section",
	mcp.WithDescription("Draft a literature review section grounded on the closest chunks of a collection."),
	mcp.WithString("collection",
		mcp.Required(),
		mcp.Description("Collection to retrieve context from"),
	),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("What the section should cover"),
	),
	mcp.WithString("topic",
		mcp.Description("Text used for retrieval (defaults to the prompt)"),
	),
	mcp.WithNumber("related",
		mcp.Description("Number of chunks used as context (default 3)"),
	),
)
