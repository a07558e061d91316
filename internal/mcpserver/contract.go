package mcpserver

// QuerySyntax documents the search query language for MCP clients.
const QuerySyntax = `# nnotes Query Syntax

Queries are matched against note titles and contents. Matching is
case-insensitive; text is split on anything that is not a letter or digit.

| Input              | Meaning                                           |
|--------------------|---------------------------------------------------|
| ` + "`milk eggs`" + `        | notes containing milk or eggs                     |
| ` + "`+milk`" + `            | milk is required                                  |
| ` + "`-eggs`" + `            | notes containing eggs are excluded                |
| ` + "`milk AND eggs`" + `    | both terms required                               |
| ` + "`milk NOT eggs`" + `    | milk, but not eggs                                |
| ` + "`title:milk`" + `       | milk in the title only (also ` + "`content:`" + `)          |
| ` + "`\"buy milk\"`" + `       | the exact phrase                                  |
| ` + "`e-mail`" + `           | treated as the phrase "e mail"                    |

Results are ranked by relevance (BM25, title matches weigh double) and capped
at the configured limit, 10 by default. Equal scores keep creation order.
A query made only of exclusions matches nothing.
`
