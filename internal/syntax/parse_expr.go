package syntax

import (
	"strconv"

	"github.com/nwmarino/lovelace/internal/ast"
)

// binaryOper maps a token to its binary operator, if any.
func binaryOper(kind TokenKind) ast.BinaryOperator {
	switch kind {
	case TokenEq:
		return ast.BinaryAssign
	case TokenEqEq:
		return ast.BinaryEq
	case TokenBangEq:
		return ast.BinaryNe
	case TokenPlus:
		return ast.BinaryAdd
	case TokenPlusEq:
		return ast.BinaryAddAssign
	case TokenMinus:
		return ast.BinarySub
	case TokenMinusEq:
		return ast.BinarySubAssign
	case TokenStar:
		return ast.BinaryMul
	case TokenStarEq:
		return ast.BinaryMulAssign
	case TokenSlash:
		return ast.BinaryDiv
	case TokenSlashEq:
		return ast.BinaryDivAssign
	case TokenPercent:
		return ast.BinaryMod
	case TokenPercentEq:
		return ast.BinaryModAssign
	case TokenLeft:
		return ast.BinaryLt
	case TokenLeftLeft:
		return ast.BinaryShl
	case TokenLeftEq:
		return ast.BinaryLe
	case TokenLeftLeftEq:
		return ast.BinaryShlAssign
	case TokenRight:
		return ast.BinaryGt
	case TokenRightRight:
		return ast.BinaryShr
	case TokenRightEq:
		return ast.BinaryGe
	case TokenRightRightEq:
		return ast.BinaryShrAssign
	case TokenAnd:
		return ast.BinaryAnd
	case TokenAndAnd:
		return ast.BinaryLogicAnd
	case TokenAndEq:
		return ast.BinaryAndAssign
	case TokenOr:
		return ast.BinaryOr
	case TokenOrOr:
		return ast.BinaryLogicOr
	case TokenOrEq:
		return ast.BinaryOrAssign
	case TokenXor:
		return ast.BinaryXor
	case TokenXorEq:
		return ast.BinaryXorAssign
	default:
		return ast.BinaryUnknown
	}
}

// precedence of a binary operator; -1 when kind is not a binary operator.
func precedence(op ast.BinaryOperator) int {
	switch op {
	case ast.BinaryMul, ast.BinaryDiv, ast.BinaryMod:
		return 11
	case ast.BinaryAdd, ast.BinarySub:
		return 10
	case ast.BinaryShl, ast.BinaryShr:
		return 9
	case ast.BinaryLt, ast.BinaryLe, ast.BinaryGt, ast.BinaryGe:
		return 8
	case ast.BinaryEq, ast.BinaryNe:
		return 7
	case ast.BinaryAnd:
		return 6
	case ast.BinaryOr:
		return 5
	case ast.BinaryXor:
		return 4
	case ast.BinaryLogicAnd:
		return 3
	case ast.BinaryLogicOr:
		return 2
	case ast.BinaryAssign, ast.BinaryAddAssign, ast.BinarySubAssign,
		ast.BinaryMulAssign, ast.BinaryDivAssign, ast.BinaryModAssign,
		ast.BinaryAndAssign, ast.BinaryOrAssign, ast.BinaryXorAssign,
		ast.BinaryShlAssign, ast.BinaryShrAssign:
		return 1
	default:
		return -1
	}
}

// unaryOper maps a token to its prefix operator, if any.
func unaryOper(kind TokenKind) ast.UnaryOperator {
	switch kind {
	case TokenBang:
		return ast.UnaryLogicNot
	case TokenPlusPlus:
		return ast.UnaryIncrement
	case TokenMinus:
		return ast.UnaryNegate
	case TokenMinusMinus:
		return ast.UnaryDecrement
	case TokenStar:
		return ast.UnaryDereference
	case TokenAnd:
		return ast.UnaryAddressOf
	case TokenTilde:
		return ast.UnaryNot
	default:
		return ast.UnaryUnknown
	}
}

// parseExpr parses a full expression with precedence climbing.
func (p *Parser) parseExpr() ast.Expr {
	base := p.parsePrefix()
	return p.parseBinary(base, 0)
}

func (p *Parser) parseBinary(lhs ast.Expr, minPrec int) ast.Expr {
	for {
		op := binaryOper(p.tok.Kind)
		prec := precedence(op)
		if prec < minPrec || prec == -1 {
			return lhs
		}
		opTok := p.advance()

		rhs := p.parsePrefix()
		for {
			nextOp := binaryOper(p.tok.Kind)
			nextPrec := precedence(nextOp)
			// Assignments associate right; everything else left.
			if nextPrec > prec || (nextPrec == prec && prec == 1) {
				rhs = p.parseBinary(rhs, nextPrec)
			} else {
				break
			}
		}

		lhs = ast.NewBinaryOp(opTok.Span, op, lhs, rhs)
	}
}

func (p *Parser) parsePrefix() ast.Expr {
	op := unaryOper(p.tok.Kind)
	if op == ast.UnaryUnknown {
		return p.parsePostfix()
	}

	tok := p.advance()
	operand := p.parsePrefix()
	return ast.NewUnaryOp(tok.Span, op, operand, false)
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()

	for {
		switch p.tok.Kind {
		case TokenLParen:
			p.advance()
			var args []ast.Expr
			for !p.match(TokenRParen) {
				if len(args) > 0 {
					p.expect(TokenComma, "','")
				}
				args = append(args, p.parseExpr())
			}
			end := p.expect(TokenRParen, "')'")
			expr = ast.NewCallExpr(expr.Span().Merge(end.Span), expr, args)

		case TokenLBracket:
			p.advance()
			index := p.parseExpr()
			end := p.expect(TokenRBracket, "']'")
			expr = ast.NewSubscriptExpr(expr.Span().Merge(end.Span), expr, index)

		case TokenDot:
			p.advance()
			field := p.expect(TokenIdentifier, "a field name")
			expr = ast.NewAccessExpr(expr.Span().Merge(field.Span), expr, field.Text)

		case TokenKwAs:
			p.advance()
			target := p.parseType()
			expr = ast.NewCastExpr(expr.Span(), target, expr)

		case TokenPlusPlus:
			tok := p.advance()
			expr = ast.NewUnaryOp(tok.Span, ast.UnaryIncrement, expr, true)

		case TokenMinusMinus:
			tok := p.advance()
			expr = ast.NewUnaryOp(tok.Span, ast.UnaryDecrement, expr, true)

		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.tok.Kind {
	case TokenInteger:
		tok := p.advance()
		value, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			p.diags.Fatal("malformed integer literal", tok.Span)
		}
		return ast.NewIntLit(tok.Span, value)

	case TokenFloat:
		tok := p.advance()
		value, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.diags.Fatal("malformed float literal", tok.Span)
		}
		return ast.NewFloatLit(tok.Span, value)

	case TokenChar:
		tok := p.advance()
		return ast.NewCharLit(tok.Span, tok.Text[0])

	case TokenString:
		tok := p.advance()
		return ast.NewStringLit(tok.Span, tok.Text)

	case TokenKwTrue:
		return ast.NewBoolLit(p.advance().Span, true)

	case TokenKwFalse:
		return ast.NewBoolLit(p.advance().Span, false)

	case TokenKwNull:
		return ast.NewNullLit(p.advance().Span)

	case TokenKwSizeof:
		start := p.advance()
		p.expect(TokenLParen, "'('")
		target := p.parseType()
		end := p.expect(TokenRParen, "')'")
		return ast.NewSizeofExpr(start.Span.Merge(end.Span), target)

	case TokenLParen:
		start := p.advance()
		inner := p.parseExpr()
		end := p.expect(TokenRParen, "')'")
		return ast.NewParenExpr(start.Span.Merge(end.Span), inner)

	case TokenIdentifier:
		tok := p.advance()
		return ast.NewDeclRefExpr(tok.Span, tok.Text)

	default:
		p.diags.Fatal("unexpected token '"+p.tok.Text+"' in expression", p.tok.Span)
		return nil
	}
}
